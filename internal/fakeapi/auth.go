package fakeapi

import (
	"log/slog"
	"net/http"

	"github.com/mateoromerocontreras/django-bookstore/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterData
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernames[req.Username]; exists {
		writeError(w, http.StatusBadRequest, "Username already exists")
		return
	}
	if _, exists := s.emails[req.Email]; exists {
		writeError(w, http.StatusBadRequest, "Email already exists")
		return
	}

	user, err := s.createUser(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("user registered", slog.String("username", user.Username))
	writeJSON(w, http.StatusCreated, user)
}

// login checks the password, starts a session and rotates the CSRF token.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginCredentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	s.mu.Lock()
	var rec *userRecord
	if id, ok := s.usernames[req.Username]; ok {
		rec = s.users[id]
	}
	s.mu.Unlock()

	if rec == nil || bcrypt.CompareHashAndPassword(rec.hash, []byte(req.Password)) != nil {
		s.logger.Warn("login failed: invalid credentials", slog.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	s.startSession(w, rec.user.ID)
	if _, err := s.issueToken(w); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	s.logins.Add(1)

	writeJSON(w, http.StatusOK, rec.user)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	id, _ := userID(r.Context())

	s.mu.Lock()
	rec, ok := s.users[id]
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusForbidden, "Authentication credentials were not provided.")
		return
	}
	writeJSON(w, http.StatusOK, rec.user)
}
