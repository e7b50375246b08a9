// Package cookiestore provides an http.CookieJar whose contents survive
// process restarts, so a command-line session behaves like a browser tab
// that keeps its session and CSRF cookies.
package cookiestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar is a public-suffix aware cookie jar that records every cookie it
// accepts so they can be written to disk. It is safe for concurrent use.
type Jar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	path    string
	entries map[string]entry
	now     func() time.Time
}

// entry is the on-disk form of one cookie.
type entry struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Origin   string    `json:"origin"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
	SameSite int       `json:"same_site,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
}

func (e entry) key() string {
	host := e.Domain
	if host == "" {
		if u, err := url.Parse(e.Origin); err == nil {
			host = u.Hostname()
		}
	}
	return strings.ToLower(host) + ";" + e.Path + ";" + e.Name
}

func (e entry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && !e.Expires.After(now)
}

func (e entry) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Domain:   e.Domain,
		Path:     e.Path,
		Secure:   e.Secure,
		HttpOnly: e.HttpOnly,
		SameSite: http.SameSite(e.SameSite),
		Expires:  e.Expires,
	}
}

// New returns an empty jar persisted at path. An empty path keeps cookies in
// memory only; Save and Load are then no-ops.
func New(path string) (*Jar, error) {
	inner, err := newInner()
	if err != nil {
		return nil, err
	}
	return &Jar{
		jar:     inner,
		path:    path,
		entries: make(map[string]entry),
		now:     time.Now,
	}, nil
}

func newInner() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return jar, nil
}

// Path returns the file the jar persists to.
func (j *Jar) Path() string {
	return j.path
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	now := j.now()
	origin := u.Scheme + "://" + u.Host
	for _, c := range cookies {
		e := entry{
			Name:     c.Name,
			Value:    c.Value,
			Origin:   origin,
			Domain:   strings.TrimPrefix(strings.ToLower(c.Domain), "."),
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: int(c.SameSite),
		}
		if e.Path == "" || e.Path[0] != '/' {
			e.Path = defaultPath(u.Path)
		}

		switch {
		case c.MaxAge < 0:
			delete(j.entries, e.key())
			continue
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			e.Expires = c.Expires
		}

		if e.expired(now) {
			delete(j.entries, e.key())
			continue
		}
		j.entries[e.key()] = e
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	inner := j.jar
	j.mu.Unlock()
	return inner.Cookies(u)
}

// Load replays the persisted cookies into the jar. A missing file is not an
// error. Expired cookies are skipped.
func (j *Jar) Load() error {
	if j.path == "" {
		return nil
	}

	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cookie file: %w", err)
	}

	var stored []entry
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse cookie file: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, e := range stored {
		if e.expired(now) {
			continue
		}
		origin, err := url.Parse(e.Origin)
		if err != nil || origin.Host == "" {
			continue
		}
		origin.Path = e.Path
		j.jar.SetCookies(origin, []*http.Cookie{e.cookie()})
		j.entries[e.key()] = e
	}
	return nil
}

// Save writes the unexpired cookies to disk with owner-only permissions.
func (j *Jar) Save() error {
	if j.path == "" {
		return nil
	}

	j.mu.Lock()
	now := j.now()
	stored := make([]entry, 0, len(j.entries))
	for _, e := range j.entries {
		if !e.expired(now) {
			stored = append(stored, e)
		}
	}
	j.mu.Unlock()

	sort.Slice(stored, func(a, b int) bool { return stored[a].key() < stored[b].key() })

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace cookie file: %w", err)
	}
	return nil
}

// Clear forgets every cookie held in memory. The file is rewritten on the
// next Save.
func (j *Jar) Clear() error {
	inner, err := newInner()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = inner
	j.entries = make(map[string]entry)
	return nil
}

// Len reports how many cookies the jar currently records.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// defaultPath follows RFC 6265 section 5.1.4.
func defaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}
