package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"vtask/backend"
)

// VikunjaServer fakes the task server endpoints quick add uses. Searches are
// case-insensitive substring matches, like the real server.
type VikunjaServer struct {
	server   *httptest.Server
	token    string
	mu       sync.Mutex
	nextID   int64
	projects []backend.Project
	labels   []backend.Label
	users    []backend.User
	requests []string
	created  []map[string]interface{}
}

// NewVikunjaServer starts a fake server that accepts only token. It is closed
// when the test ends.
func NewVikunjaServer(t *testing.T, token string) *VikunjaServer {
	t.Helper()
	s := &VikunjaServer{token: token, nextID: 100}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

// URL is the server base URL, without the API prefix.
func (s *VikunjaServer) URL() string { return s.server.URL }

// AddProject seeds a project.
func (s *VikunjaServer) AddProject(id int64, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, backend.Project{ID: id, Title: title})
}

// AddLabel seeds a label.
func (s *VikunjaServer) AddLabel(id int64, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, backend.Label{ID: id, Title: title})
}

// AddUser seeds a user.
func (s *VikunjaServer) AddUser(id int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, backend.User{ID: id, Username: username})
}

// CreatedTasks returns the decoded bodies of every task create request.
func (s *VikunjaServer) CreatedTasks() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.created...)
}

// Requests returns "METHOD /path" for every request received.
func (s *VikunjaServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many requests start with prefix, e.g. "GET /api/v1/labels".
func (s *VikunjaServer) Count(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (s *VikunjaServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer "+s.token {
		reply(w, http.StatusUnauthorized, map[string]interface{}{"code": 11, "message": "invalid token"})
		return
	}

	var body map[string]interface{}
	if r.Method == http.MethodPut {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	search := strings.ToLower(r.URL.Query().Get("s"))
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")

	switch {
	case r.Method == http.MethodGet && path == "/projects":
		out := []backend.Project{}
		for _, p := range s.projects {
			if strings.Contains(strings.ToLower(p.Title), search) {
				out = append(out, p)
			}
		}
		reply(w, http.StatusOK, out)

	case r.Method == http.MethodPut && path == "/projects":
		p := backend.Project{ID: s.id(), Title: fmt.Sprint(body["title"])}
		s.projects = append(s.projects, p)
		reply(w, http.StatusCreated, p)

	case r.Method == http.MethodGet && path == "/labels":
		out := []backend.Label{}
		for _, l := range s.labels {
			if strings.Contains(strings.ToLower(l.Title), search) {
				out = append(out, l)
			}
		}
		reply(w, http.StatusOK, out)

	case r.Method == http.MethodPut && path == "/labels":
		l := backend.Label{ID: s.id(), Title: fmt.Sprint(body["title"])}
		s.labels = append(s.labels, l)
		reply(w, http.StatusCreated, l)

	case r.Method == http.MethodGet && path == "/users":
		out := []backend.User{}
		for _, u := range s.users {
			if strings.Contains(strings.ToLower(u.Username), search) {
				out = append(out, u)
			}
		}
		reply(w, http.StatusOK, out)

	case r.Method == http.MethodPut && strings.HasPrefix(path, "/projects/") && strings.HasSuffix(path, "/tasks"):
		var projectID int64
		_, _ = fmt.Sscanf(path, "/projects/%d/tasks", &projectID)
		s.created = append(s.created, body)
		resp := map[string]interface{}{
			"id":           s.id(),
			"identifier":   fmt.Sprintf("#%d", len(s.created)),
			"project_id":   projectID,
			"title":        body["title"],
			"priority":     body["priority"],
			"repeat_after": body["repeat_after"],
			"due_date":     "0001-01-01T00:00:00Z",
		}
		if due, ok := body["due_date"]; ok {
			resp["due_date"] = due
		}
		reply(w, http.StatusCreated, resp)

	case r.Method == http.MethodPut && strings.HasPrefix(path, "/tasks/"):
		reply(w, http.StatusCreated, map[string]interface{}{})

	default:
		reply(w, http.StatusNotFound, map[string]interface{}{"code": 404, "message": "not found"})
	}
}

func (s *VikunjaServer) id() int64 {
	s.nextID++
	return s.nextID
}

func reply(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
