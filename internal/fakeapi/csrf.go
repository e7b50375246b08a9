package fakeapi

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"
)

const (
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

// generateToken returns 32 random bytes hex encoded.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// issueToken creates a token, remembers it and sets the cookie.
func (s *Server) issueToken(w http.ResponseWriter) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
	s.tokensIssued.Add(1)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// csrfToken returns the caller's current token, issuing one when the
// caller has none the server knows.
func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) {
	s.tokenRequests.Add(1)

	if s.tokenDelay > 0 {
		select {
		case <-time.After(s.tokenDelay):
		case <-r.Context().Done():
			return
		}
	}

	if cookie, err := r.Cookie(csrfCookieName); err == nil && s.knownToken(cookie.Value) {
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": cookie.Value})
		return
	}

	token, err := s.issueToken(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

// csrfProtect rejects unsafe requests whose X-CSRFToken header does not
// match a server-issued csrftoken cookie.
func (s *Server) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			s.rejectCSRF(w, r, "CSRF cookie not set.")
			return
		}

		submitted := r.Header.Get(csrfHeaderName)
		if submitted == "" {
			s.rejectCSRF(w, r, "CSRF token missing.")
			return
		}

		if !hmac.Equal([]byte(cookie.Value), []byte(submitted)) || !s.knownToken(submitted) {
			s.rejectCSRF(w, r, "CSRF token incorrect.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) knownToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	s.csrfRejections.Add(1)
	s.logger.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.RequestURI),
		slog.String("remote_addr", r.RemoteAddr),
	)
	writeDetail(w, http.StatusForbidden, "CSRF Failed: "+reason)
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}
