// Package csrf keeps the anti-forgery token the storefront API requires on
// state-changing requests.
package csrf

import (
	"net/http"
	"net/url"
)

const (
	// CookieName is the cookie the server stores the token under.
	CookieName = "csrftoken"
	// HeaderName carries the token on mutating requests.
	HeaderName = "X-CSRFToken"
)

// TokenReader returns the cached token, if one is present.
type TokenReader interface {
	Read() (string, bool)
}

// Cache reads the token the cookie jar would send to the API.
type Cache struct {
	jar  http.CookieJar
	base *url.URL
}

// NewCache returns a cache over jar for requests to base.
func NewCache(jar http.CookieJar, base *url.URL) *Cache {
	return &Cache{jar: jar, base: base}
}

// Read returns the token cookie value. It never touches the network.
func (c *Cache) Read() (string, bool) {
	if c.jar == nil {
		return "", false
	}
	for _, cookie := range c.jar.Cookies(c.base) {
		if cookie.Name != CookieName || cookie.Value == "" {
			continue
		}
		if v, err := url.PathUnescape(cookie.Value); err == nil {
			return v, true
		}
		return cookie.Value, true
	}
	return "", false
}
