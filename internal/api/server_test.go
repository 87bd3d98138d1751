package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fluxtodo/internal/api"
	"fluxtodo/internal/auth"
	"fluxtodo/internal/backend/sqlite"
	"fluxtodo/internal/service"
)

func newServer(t *testing.T, tokens map[string]string) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"), auth.FromContext)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	srv := httptest.NewServer(api.NewServer(db, tokens, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, api.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env api.Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func TestServer_RequiresBearerToken(t *testing.T) {
	srv := newServer(t, nil)

	status, env := call(t, srv, http.MethodGet, "/api/lists", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if env.Success || env.Error == nil || env.Error.Code != service.CodeUnauthorized {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestServer_TokenTable(t *testing.T) {
	srv := newServer(t, map[string]string{"s3cret": "alice"})

	if status, _ := call(t, srv, http.MethodGet, "/api/lists", "alice", nil); status != http.StatusUnauthorized {
		t.Fatalf("unknown token status = %d, want 401", status)
	}
	status, env := call(t, srv, http.MethodPost, "/api/lists", "s3cret", map[string]string{"title": "Home"})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%+v)", status, env.Error)
	}
	if l := decode[service.List](t, env); l.OwnerID != "alice" {
		t.Fatalf("owner = %q, want alice", l.OwnerID)
	}
}

func TestServer_ListRoutes(t *testing.T) {
	srv := newServer(t, nil)

	status, env := call(t, srv, http.MethodPost, "/api/lists", "alice", map[string]string{"title": "  Groceries "})
	if status != http.StatusCreated || !env.Success {
		t.Fatalf("create: status %d, env %+v", status, env)
	}
	created := decode[service.List](t, env)
	if created.Title != "Groceries" {
		t.Fatalf("title = %q, want trimmed", created.Title)
	}

	status, env = call(t, srv, http.MethodPatch, "/api/lists", "alice", api.UpdateListBody{ListID: created.ID, Title: "Food"})
	if status != http.StatusOK || decode[service.List](t, env).Title != "Food" {
		t.Fatalf("update: status %d, env %+v", status, env)
	}

	status, env = call(t, srv, http.MethodGet, "/api/lists?page=1&limit=5", "alice", nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	if env.Meta == nil || env.Meta.Total != 1 || env.Meta.Limit != 5 {
		t.Fatalf("meta = %+v", env.Meta)
	}

	status, env = call(t, srv, http.MethodGet, "/api/lists", "bob", nil)
	if status != http.StatusOK || len(decode[[]service.List](t, env)) != 0 {
		t.Fatalf("bob sees alice's lists: %s", env.Data)
	}

	status, env = call(t, srv, http.MethodDelete, "/api/lists?listId="+created.ID, "alice", nil)
	if status != http.StatusOK || decode[api.MessageBody](t, env).Message != "List deleted successfully" {
		t.Fatalf("delete: status %d, env %s", status, env.Data)
	}

	status, env = call(t, srv, http.MethodDelete, "/api/lists?listId="+created.ID, "alice", nil)
	if status != http.StatusNotFound || env.Error.Code != service.CodeNotFound {
		t.Fatalf("second delete: status %d, env %+v", status, env.Error)
	}
}

func TestServer_TaskRoutes(t *testing.T) {
	srv := newServer(t, nil)
	_, env := call(t, srv, http.MethodPost, "/api/lists", "alice", map[string]string{"title": "Home"})
	list := decode[service.List](t, env)

	status, env := call(t, srv, http.MethodPost, "/api/tasks", "alice",
		service.CreateTaskRequest{Title: "Milk", ListID: list.ID})
	if status != http.StatusCreated {
		t.Fatalf("create: status %d, env %+v", status, env.Error)
	}
	task := decode[service.Task](t, env)

	done := true
	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		status, env = call(t, srv, method, "/api/tasks", "alice",
			api.UpdateTaskBody{TaskID: task.ID, TaskPatch: service.TaskPatch{Completed: &done}})
		if status != http.StatusOK || !decode[service.Task](t, env).Completed {
			t.Fatalf("%s: status %d, env %s", method, status, env.Data)
		}
	}

	status, env = call(t, srv, http.MethodGet, "/api/tasks?completed=true&listId="+list.ID, "alice", nil)
	if status != http.StatusOK || len(decode[[]service.Task](t, env)) != 1 {
		t.Fatalf("filter: status %d, env %s", status, env.Data)
	}

	_, env = call(t, srv, http.MethodGet, "/api/lists?include=tasks", "alice", nil)
	withTasks := decode[[]service.ListWithTasks](t, env)
	if len(withTasks) != 1 || len(withTasks[0].Tasks) != 1 {
		t.Fatalf("include=tasks = %s", env.Data)
	}

	status, env = call(t, srv, http.MethodDelete, "/api/tasks?taskId="+task.ID, "alice", nil)
	if status != http.StatusOK || decode[api.MessageBody](t, env).Message != "Task deleted successfully" {
		t.Fatalf("delete: status %d, env %s", status, env.Data)
	}
}

func TestServer_ValidationErrors(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		field  string
	}{
		{"blank list title", http.MethodPost, "/api/lists", map[string]string{"title": " "}, "title"},
		{"missing list id on patch", http.MethodPatch, "/api/lists", api.UpdateListBody{Title: "x"}, "listId"},
		{"missing list id on delete", http.MethodDelete, "/api/lists", nil, "listId"},
		{"missing task id on delete", http.MethodDelete, "/api/tasks", nil, "taskId"},
		{"bad completed filter", http.MethodGet, "/api/tasks?completed=maybe", nil, "completed"},
		{"bad page", http.MethodGet, "/api/lists?page=two", nil, "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, srv, tt.method, tt.path, "alice", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			if env.Error == nil || env.Error.Code != service.CodeValidation {
				t.Fatalf("error = %+v", env.Error)
			}
			details, _ := env.Error.Details.(map[string]any)
			if details["field"] != tt.field {
				t.Fatalf("details = %v, want field %q", env.Error.Details, tt.field)
			}
		})
	}
}

func TestServer_MalformedBody(t *testing.T) {
	srv := newServer(t, nil)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/lists", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
