// Package apitest provides an in-memory users API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/userdesk/internal/domain"
)

// IdentityHeader is the header the fake server authorizes on.
const IdentityHeader = "CurrentUserId"

// Server is a fake users API backed by a map.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int
	users    map[string]domain.User
	order    []string
	logouts  []string
	requests []Request
}

// Request records what the server saw.
type Request struct {
	Method   string
	Path     string
	Identity string
}

// NewServer starts a fake API and closes it with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		nextID: 1,
		users:  make(map[string]domain.User),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("POST /logout/{id}", s.logout)
	mux.HandleFunc("GET /users", s.list)
	mux.HandleFunc("POST /users", s.create)
	mux.HandleFunc("GET /users/{id}", s.get)
	mux.HandleFunc("PUT /users/{id}", s.update)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			Identity: r.Header.Get(IdentityHeader),
		})
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Seed inserts a user directly and returns it with id and token assigned.
func (s *Server) Seed(username, name, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(domain.Registration{Username: username, Name: name, Password: password})
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Logouts returns the ids that hit the logout endpoint.
func (s *Server) Logouts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logouts))
	copy(out, s.logouts)
	return out
}

func (s *Server) insertLocked(reg domain.Registration) domain.User {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	now := domain.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	u := domain.User{
		ID:           domain.UserID(id),
		Name:         reg.Name,
		Username:     reg.Username,
		Token:        uuid.NewString(),
		Status:       "ONLINE",
		CreationDate: &now,
		Password:     reg.Password,
	}
	s.users[id] = u
	s.order = append(s.order, id)
	return u
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		u := s.users[id]
		if u.Username == creds.Username && u.Password == creds.Password {
			u.Status = "ONLINE"
			s.users[id] = u
			writeJSON(w, http.StatusOK, public(u, true))
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "invalid username or password")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	u.Status = "OFFLINE"
	s.users[id] = u
	s.logouts = append(s.logouts, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, public(s.users[id], true))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if reg.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == reg.Username {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
	}
	writeJSON(w, http.StatusCreated, public(s.insertLocked(reg), true))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, public(u, false))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.Header.Get(IdentityHeader) != id {
		writeError(w, http.StatusForbidden, "you can only edit your own profile")
		return
	}

	var upd domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Birthday != nil {
		b := *upd.Birthday
		u.Birthday = &b
	}
	s.users[id] = u
	w.WriteHeader(http.StatusNoContent)
}

// public strips the password and, unless withToken, the token.
func public(u domain.User, withToken bool) domain.User {
	u.Password = ""
	if !withToken {
		u.Token = ""
	}
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
