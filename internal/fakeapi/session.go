package fakeapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const sessionCookieName = "sessionid"

type contextKey string

const userIDKey contextKey = "user_id"

// loadSession resolves the session cookie to a user id. Unknown or missing
// sessions leave the request anonymous.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		s.mu.Lock()
		userID, ok := s.sessions[cookie.Value]
		s.mu.Unlock()

		if ok {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next.ServeHTTP(w, r)
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userID(r.Context()); !ok {
			writeDetail(w, http.StatusForbidden, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// startSession binds a fresh session id to userID and sets the cookie.
func (s *Server) startSession(w http.ResponseWriter, userID int64) {
	sid := uuid.NewString()

	s.mu.Lock()
	s.sessions[sid] = userID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
