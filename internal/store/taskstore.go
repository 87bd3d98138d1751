package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"fluxtodo/internal/service"
)

const (
	opFetchTasks = "fetch tasks"
	opCreateTask = "create task"
	opUpdateTask = "update task"
	opToggleTask = "toggle task"
	opDeleteTask = "delete task"
)

// TaskStore caches the user's tasks. Every mutation that changes a task's
// list membership or completion flag sends the matching count effects to the
// configured CountSink while the store lock is held, and sends the inverse
// effects when it reverts.
type TaskStore struct {
	svc service.Service

	mu sync.Mutex
	opState
	tasks      []service.Task
	totalCount int
	page       service.PageMeta
	search     string
	filters    Filters
}

// CreateTaskInput holds the fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description *string
	ListID      string
}

// NewTaskStore creates an empty TaskStore backed by svc. Use WithCountSink to
// keep a ListStore's counts in step.
func NewTaskStore(svc service.Service, opts ...Option) *TaskStore {
	return newTaskStore(svc, buildOptions(opts))
}

func newTaskStore(svc service.Service, o options) *TaskStore {
	return &TaskStore{
		svc:     svc,
		opState: newOpState(o),
		page:    service.PageMeta{Page: 1, TotalPages: 1},
		filters: DefaultFilters(),
	}
}

// TaskSnapshot is a copy of the TaskStore state.
type TaskSnapshot struct {
	Status
	Tasks      []service.Task
	TotalCount int
	Page       service.PageMeta
	Search     string
	Filters    Filters
}

// Snapshot returns a copy of the current state.
func (s *TaskStore) Snapshot() TaskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *TaskStore) snapshotLocked() TaskSnapshot {
	return TaskSnapshot{
		Status:     s.status(),
		Tasks:      cloneTasks(s.tasks),
		TotalCount: s.totalCount,
		Page:       s.page,
		Search:     s.search,
		Filters:    s.filters.clone(),
	}
}

// emit forwards effects to the count sink. Callers hold s.mu.
func (s *TaskStore) emit(effs ...Effect) {
	if s.counts == nil || s.closed || len(effs) == 0 {
		return
	}
	s.counts.ApplyEffects(effs...)
}

// Fetch replaces the collection with a server page selected by the current
// search and filters.
func (s *TaskStore) Fetch(ctx context.Context, page int) error {
	s.mu.Lock()
	if err := s.begin(ctx, opFetchTasks); err != nil {
		s.mu.Unlock()
		return err
	}
	q := service.TaskQuery{
		Page:      page,
		Limit:     s.pageSize,
		Search:    s.search,
		ListID:    s.filters.ListID,
		Completed: s.filters.Completed,
		SortBy:    s.filters.SortBy,
		SortOrder: s.filters.SortOrder,
	}
	s.loading++
	s.mu.Unlock()

	res, err := s.svc.ListTasks(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return s.fail(opFetchTasks, "Failed to fetch tasks", err)
	}
	if s.closed {
		return nil
	}
	s.tasks = cloneTasks(res.Items)
	s.totalCount = res.Meta.Total
	s.page = res.Meta
	return nil
}

// Create inserts a provisional task at the front and counts it against its
// list. On success the provisional record is replaced in place; on failure
// it is removed and the count undone.
func (s *TaskStore) Create(ctx context.Context, in CreateTaskInput) (service.Task, error) {
	s.mu.Lock()
	if err := s.begin(ctx, opCreateTask); err != nil {
		s.mu.Unlock()
		return service.Task{}, err
	}
	if err := checkCreate(in); err != nil {
		err = s.reject(opCreateTask, err)
		s.mu.Unlock()
		return service.Task{}, err
	}
	tempID := s.ids.next()
	now := s.now()
	provisional := service.Task{
		ID:          tempID,
		Title:       in.Title,
		Description: cloneString(in.Description),
		ListID:      in.ListID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks = slices.Insert(s.tasks, 0, provisional)
	s.totalCount++
	s.emit(increment(in.ListID, false))
	s.creating++
	s.mu.Unlock()

	created, err := s.svc.CreateTask(ctx, service.CreateTaskRequest{
		Title:       in.Title,
		Description: in.Description,
		ListID:      in.ListID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating--
	i := indexOf(s.tasks, tempID, taskID)
	if err != nil {
		// A Fetch may have replaced the collection since the insert; the
		// count was still taken, so it is always undone.
		if i >= 0 {
			s.tasks = slices.Delete(s.tasks, i, i+1)
			s.totalCount = max(s.totalCount-1, 0)
		}
		s.emit(decrement(in.ListID, false))
		return service.Task{}, s.fail(opCreateTask, "Failed to create task", err)
	}
	s.emit(changeEffects(provisional, created)...)
	if i >= 0 {
		s.tasks[i] = created
	}
	return created, nil
}

func checkCreate(in CreateTaskInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(in.ListID) == "" {
		return &ValidationError{Field: "listId", Message: "list is required"}
	}
	return nil
}

func checkPatch(p service.TaskPatch) error {
	if p.IsEmpty() {
		return &ValidationError{Message: "nothing to update"}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if p.ListID != nil && strings.TrimSpace(*p.ListID) == "" {
		return &ValidationError{Field: "listId", Message: "list is required"}
	}
	return nil
}

// Update applies patch in place immediately and reverts the whole record if
// the server rejects it.
func (s *TaskStore) Update(ctx context.Context, id string, patch service.TaskPatch) error {
	return s.update(ctx, opUpdateTask, id, func(service.Task) service.TaskPatch { return patch })
}

// ToggleComplete flips the completed flag of task id.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) error {
	return s.update(ctx, opToggleTask, id, func(t service.Task) service.TaskPatch {
		done := !t.Completed
		return service.TaskPatch{Completed: &done}
	})
}

// update builds the patch from the current record under the lock, so a
// toggle never acts on a stale flag.
func (s *TaskStore) update(ctx context.Context, op, id string, build func(service.Task) service.TaskPatch) error {
	s.mu.Lock()
	if err := s.begin(ctx, op); err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(s.tasks, id, taskID)
	if err := s.claim(op, id, i >= 0); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.tasks[i]
	patch := build(prev)
	if err := checkPatch(patch); err != nil {
		err = s.reject(op, err)
		s.mu.Unlock()
		return err
	}
	next := patch.Apply(prev)
	next.UpdatedAt = s.now()
	effs := changeEffects(prev, next)
	s.tasks[i] = next
	s.emit(effs...)
	s.updating[id] = true
	s.mu.Unlock()

	updated, err := s.svc.UpdateTask(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.updating, id)
	if err != nil {
		s.revertLocked(prev, effs)
		return s.fail(op, "Failed to update task", err)
	}
	s.reconcileLocked(next, updated)
	return nil
}

// reconcileLocked swaps in the server's copy of a task. Counts move by the
// difference between the optimistic record and the server's, whether or not
// the record is still in the collection.
func (s *TaskStore) reconcileLocked(optimistic, server service.Task) {
	if s.closed {
		return
	}
	s.emit(changeEffects(optimistic, server)...)
	if i := indexOf(s.tasks, server.ID, taskID); i >= 0 {
		s.tasks[i] = server
	}
}

// revertLocked restores prev if it is still in the collection and undoes
// the count effects applied with the optimistic change.
func (s *TaskStore) revertLocked(prev service.Task, effs []Effect) {
	if s.closed {
		return
	}
	if i := indexOf(s.tasks, prev.ID, taskID); i >= 0 {
		s.tasks[i] = prev
	}
	s.emit(invert(effs)...)
}

// Delete removes a task immediately and uncounts it. On failure the task is
// reinserted at its original index and counted again.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.begin(ctx, opDeleteTask); err != nil {
		s.mu.Unlock()
		return err
	}
	idx := indexOf(s.tasks, id, taskID)
	if err := s.claim(opDeleteTask, id, idx >= 0); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.tasks[idx]
	s.tasks = slices.Delete(s.tasks, idx, idx+1)
	s.totalCount = max(s.totalCount-1, 0)
	s.emit(decrement(prev.ListID, prev.Completed))
	s.deleting[id] = true
	s.mu.Unlock()

	err := s.svc.DeleteTask(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleting, id)
	if err == nil {
		return nil
	}
	if !s.closed && indexOf(s.tasks, id, taskID) < 0 {
		s.tasks = slices.Insert(s.tasks, min(idx, len(s.tasks)), prev)
		s.totalCount++
	}
	s.emit(increment(prev.ListID, prev.Completed))
	return s.fail(opDeleteTask, "Failed to delete task", err)
}

// ClearError clears the error field.
func (s *TaskStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Err returns the error recorded by the last failed operation.
func (s *TaskStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Get returns the task with id.
func (s *TaskStore) Get(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.tasks, id, taskID); i >= 0 {
		return cloneTask(s.tasks[i]), true
	}
	return service.Task{}, false
}

// ByList returns the cached tasks of listID in collection order.
func (s *TaskStore) ByList(listID string) []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []service.Task
	for _, t := range s.tasks {
		if t.ListID == listID {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

// Stats summarizes the cached tasks.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Stats counts the cached tasks by completion.
func (s *TaskStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, t := range s.tasks {
		st.Total++
		if t.Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	return st
}

func (s *TaskStore) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.closed = true
	s.tasks = nil
	s.totalCount = 0
	s.page = service.PageMeta{Page: 1, TotalPages: 1}
	s.search = ""
	s.filters = DefaultFilters()
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTask(t service.Task) service.Task {
	t.Description = cloneString(t.Description)
	return t
}

func cloneTasks(ts []service.Task) []service.Task {
	if ts == nil {
		return nil
	}
	out := make([]service.Task, len(ts))
	for i, t := range ts {
		out[i] = cloneTask(t)
	}
	return out
}
