// Package testutil provides the shared fixture API that the e2e suites run
// against: a small in-memory users service on httptest.Server, started once
// per test binary and reset between tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/webprobe/internal/errs"
	"github.com/kuitang/webprobe/internal/ratelimit"
)

// User is the fixture API's resource.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UsersServer is an in-memory users API for exercising the client helpers:
// CRUD under /users, a header/query echo, a configurable-delay endpoint, a
// rate-limited endpoint, and an HTML signup form for browser tests.
type UsersServer struct {
	server  *httptest.Server
	limiter *ratelimit.Limiter

	mu    sync.Mutex
	users map[string]User
}

var (
	sharedMu sync.Mutex
	shared   *UsersServer
)

// StartUsersServer returns the shared fixture, creating it on first use and
// resetting its state for every caller.
func StartUsersServer(t testing.TB) *UsersServer {
	t.Helper()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = newUsersServer()
	}
	shared.Reset()
	return shared
}

// Cleanup tears down the shared fixture. Call from TestMain after m.Run().
func Cleanup() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		return
	}
	shared.server.Close()
	shared.limiter.Stop()
	shared = nil
}

// BaseURL returns the fixture's base address.
func (s *UsersServer) BaseURL() string {
	return s.server.URL
}

// Client returns the httptest server's preconfigured HTTP client.
func (s *UsersServer) Client() *http.Client {
	return s.server.Client()
}

// Reset clears all stored users.
func (s *UsersServer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]User)
}

func newUsersServer() *UsersServer {
	s := &UsersServer{
		users: make(map[string]User),
		// Burst of 2 makes the third immediate request deterministically 429.
		limiter: ratelimit.New(ratelimit.Config{
			RPS:             1,
			Burst:           2,
			CleanupInterval: time.Hour,
		}),
	}

	limited := ratelimit.Middleware(s.limiter, func(r *http.Request) string {
		return r.Header.Get("X-Client-Id")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users", s.createUser)
	mux.HandleFunc("GET /users", s.listUsers)
	mux.HandleFunc("GET /users/{id}", s.getUser)
	mux.HandleFunc("PUT /users/{id}", s.updateUser)
	mux.HandleFunc("DELETE /users/{id}", s.deleteUser)
	mux.HandleFunc("GET /echo", s.echo)
	mux.HandleFunc("GET /slow", s.slow)
	mux.Handle("GET /limited", limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})))
	mux.HandleFunc("GET /signup", s.signupForm)
	mux.HandleFunc("POST /signup", s.signupSubmit)

	s.server = httptest.NewServer(mux)
	return s
}

type userParams struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *UsersServer) createUser(w http.ResponseWriter, r *http.Request) {
	var params userParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		errs.WriteHTTP(w, errs.Wrap(errs.InvalidArgument, "request body is not valid JSON", err))
		return
	}
	if params.Name == "" {
		errs.WriteHTTP(w, errs.New(errs.InvalidArgument, "name is required"))
		return
	}

	user := User{
		ID:    uuid.NewString(),
		Name:  params.Name,
		Email: params.Email,
	}

	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()

	w.Header().Set("Location", "/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (s *UsersServer) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]User, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, u)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"users": list,
		"total": len(list),
	})
}

func (s *UsersServer) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user, ok := s.users[r.PathValue("id")]
	s.mu.Unlock()

	if !ok {
		errs.WriteHTTP(w, errs.New(errs.NotFound, "user does not exist"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *UsersServer) updateUser(w http.ResponseWriter, r *http.Request) {
	var params userParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		errs.WriteHTTP(w, errs.Wrap(errs.InvalidArgument, "request body is not valid JSON", err))
		return
	}

	s.mu.Lock()
	user, ok := s.users[r.PathValue("id")]
	if ok {
		if params.Name != "" {
			user.Name = params.Name
		}
		if params.Email != "" {
			user.Email = params.Email
		}
		s.users[user.ID] = user
	}
	s.mu.Unlock()

	if !ok {
		errs.WriteHTTP(w, errs.New(errs.NotFound, "user does not exist"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *UsersServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.users[r.PathValue("id")]
	if ok {
		delete(s.users, r.PathValue("id"))
	}
	s.mu.Unlock()

	if !ok {
		errs.WriteHTTP(w, errs.New(errs.NotFound, "user does not exist"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// echo reflects the request back so tests can assert on exactly what was
// sent over the wire. Header keys are lower-cased, first value only.
func (s *UsersServer) echo(w http.ResponseWriter, r *http.Request) {
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[strings.ToLower(k)] = r.Header.Get(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"method":   r.Method,
		"path":     r.URL.Path,
		"rawQuery": r.URL.RawQuery,
		"headers":  headers,
	})
}

func (s *UsersServer) slow(w http.ResponseWriter, r *http.Request) {
	delayMS := 25
	if raw := r.URL.Query().Get("ms"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 1000 {
			errs.WriteHTTP(w, errs.New(errs.InvalidArgument, "invalid ms parameter"))
			return
		}
		delayMS = parsed
	}
	time.Sleep(time.Duration(delayMS) * time.Millisecond)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *UsersServer) signupForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>Sign up</title></head><body>
<h1>Sign up</h1>
<form method="POST" action="/signup">
  <input id="name" name="name" type="text" placeholder="Name">
  <input id="email" name="email" type="email" placeholder="Email">
  <button type="submit">Create account</button>
</form>
</body></html>`)
}

func (s *UsersServer) signupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errs.WriteHTTP(w, errs.Wrap(errs.InvalidArgument, "invalid form", err))
		return
	}
	name := r.PostFormValue("name")
	if name == "" {
		errs.WriteHTTP(w, errs.New(errs.InvalidArgument, "name is required"))
		return
	}

	user := User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: r.PostFormValue("email"),
	}
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html><head><title>Welcome</title></head><body>
<div id="signup-confirmation">Welcome, %s!</div>
</body></html>`, html.EscapeString(user.Name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
