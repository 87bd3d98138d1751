package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/service"
)

const maxBodyBytes = 1 << 20

// Server exposes a service.Service under /api. The service must read the
// caller from auth.FromContext.
type Server struct {
	svc    service.Service
	tokens map[string]string
	logger *slog.Logger
}

// NewServer creates a Server. tokens maps bearer tokens to user ids; when it
// is empty the bearer token itself is taken as the user id.
func NewServer(svc service.Service, tokens map[string]string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{svc: svc, tokens: tokens, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/lists", s.handleListLists)
	mux.HandleFunc("POST /api/lists", s.handleCreateList)
	mux.HandleFunc("PATCH /api/lists", s.handleUpdateList)
	mux.HandleFunc("DELETE /api/lists", s.handleDeleteList)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("PATCH /api/tasks", s.handleUpdateTask)
	mux.HandleFunc("PUT /api/tasks", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks", s.handleDeleteTask)
	return s.withLogging(s.withAuth(mux))
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("include") == "tasks" {
		lists, err := s.svc.ListListsWithTasks(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if lists == nil {
			lists = []service.ListWithTasks{}
		}
		writeJSON(w, http.StatusOK, response{Success: true, Data: lists})
		return
	}

	q, err := listQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	page, err := s.svc.ListLists(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []service.List{}
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: items, Meta: &page.Meta})
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var body service.CreateListRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	list, err := s.svc.CreateList(r.Context(), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: list})
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	var body UpdateListBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(body.ListID) == "" {
		s.writeError(w, service.Validation("listId is required", "listId"))
		return
	}
	list, err := s.svc.UpdateList(r.Context(), body.ListID, service.UpdateListRequest{Title: body.Title})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("listId")
	if id == "" {
		s.writeError(w, service.Validation("List ID is required", "listId"))
		return
	}
	if err := s.svc.DeleteList(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: MessageBody{Message: "List deleted successfully"}})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := taskQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	page, err := s.svc.ListTasks(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := page.Items
	if items == nil {
		items = []service.Task{}
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: items, Meta: &page.Meta})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body service.CreateTaskRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	task, err := s.svc.CreateTask(r.Context(), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: task})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body UpdateTaskBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(body.TaskID) == "" {
		s.writeError(w, service.Validation("taskId is required", "taskId"))
		return
	}
	task, err := s.svc.UpdateTask(r.Context(), body.TaskID, body.TaskPatch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("taskId")
	if id == "" {
		s.writeError(w, service.Validation("Task ID is required", "taskId"))
		return
	}
	if err := s.svc.DeleteTask(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: MessageBody{Message: "Task deleted successfully"}})
}

func listQuery(r *http.Request) (service.ListQuery, error) {
	v := r.URL.Query()
	page, limit, err := window(v.Get("page"), v.Get("limit"))
	if err != nil {
		return service.ListQuery{}, err
	}
	return service.ListQuery{
		Page:      page,
		Limit:     limit,
		Search:    v.Get("search"),
		SortBy:    service.SortField(v.Get("sortBy")),
		SortOrder: service.SortOrder(v.Get("sortOrder")),
	}, nil
}

func taskQuery(r *http.Request) (service.TaskQuery, error) {
	v := r.URL.Query()
	page, limit, err := window(v.Get("page"), v.Get("limit"))
	if err != nil {
		return service.TaskQuery{}, err
	}
	q := service.TaskQuery{
		Page:      page,
		Limit:     limit,
		Search:    v.Get("search"),
		ListID:    v.Get("listId"),
		SortBy:    service.SortField(v.Get("sortBy")),
		SortOrder: service.SortOrder(v.Get("sortOrder")),
	}
	if c := v.Get("completed"); c != "" {
		b, err := strconv.ParseBool(c)
		if err != nil {
			return service.TaskQuery{}, service.Validation("completed must be true or false", "completed")
		}
		q.Completed = &b
	}
	return q, nil
}

func window(page, limit string) (int, int, error) {
	var p, l int
	var err error
	if page != "" {
		if p, err = strconv.Atoi(page); err != nil {
			return 0, 0, service.Validation("page must be a number", "page")
		}
	}
	if limit != "" {
		if l, err = strconv.Atoi(limit); err != nil {
			return 0, 0, service.Validation("limit must be a number", "limit")
		}
	}
	return p, l, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return service.Validation("Request body is required", "")
		}
		return service.Validation("Invalid JSON body", "")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	e, ok := service.AsError(err)
	if !ok || e.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	if !ok {
		e = service.Internal("")
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, response{Error: &ErrorBody{Code: e.Code, Message: e.Message, Details: e.Details}})
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			s.writeError(w, service.Unauthorized())
			return
		}
		user := token
		if len(s.tokens) > 0 {
			if user, ok = s.tokens[token]; !ok {
				s.writeError(w, service.Unauthorized())
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
