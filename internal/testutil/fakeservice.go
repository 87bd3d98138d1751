// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"fluxtodo/internal/service"
)

// DefaultOwner owns every list created through a FakeService.
const DefaultOwner = "user-1"

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	lists  []service.List
	tasks  []service.Task
	nextID int
	clock  time.Time
	calls  []string

	// Error injection for testing
	ListListsErr          error
	ListListsWithTasksErr error
	CreateListErr         error
	UpdateListErr         error
	DeleteListErr         error
	ListTasksErr          error
	CreateTaskErr         error
	UpdateTaskErr         error
	DeleteTaskErr         error
	TaskErrs              map[string]error // taskID -> error for UpdateTask and DeleteTask

	// Gate, when set, runs before every call with the operation name and
	// entity id. Tests use it to hold calls in flight.
	Gate func(ctx context.Context, op, id string) error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		TaskErrs: make(map[string]error),
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Callers hold f.mu.
func (f *FakeService) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *FakeService) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// AddList adds a list to the fake service.
func (f *FakeService) AddList(id, title string) service.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	l := service.List{ID: id, Title: title, OwnerID: DefaultOwner, CreatedAt: now, UpdatedAt: now}
	f.lists = append(f.lists, l)
	return l
}

// AddTask adds a task to a list.
func (f *FakeService) AddTask(listID, taskID, title string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	t := service.Task{ID: taskID, Title: title, Completed: completed, ListID: listID, CreatedAt: now, UpdatedAt: now}
	f.tasks = append(f.tasks, t)
	return t
}

// Lists returns the stored lists.
func (f *FakeService) Lists() []service.List {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.lists)
}

// Tasks returns the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.tasks)
}

// Calls returns the calls made so far as "Op id" strings.
func (f *FakeService) Calls() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.calls)
}

func (f *FakeService) enter(ctx context.Context, op, id string, injected error) error {
	f.mu.Lock()
	if id != "" {
		f.calls = append(f.calls, op+" "+id)
	} else {
		f.calls = append(f.calls, op)
	}
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		if err := gate(ctx, op, id); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return injected
}

func (f *FakeService) taskErr(id string, fallback error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err, ok := f.TaskErrs[id]; ok && err != nil {
		return err
	}
	return fallback
}

// ListLists implements service.Service.
func (f *FakeService) ListLists(ctx context.Context, q service.ListQuery) (service.ListPage, error) {
	if err := f.enter(ctx, "ListLists", "", f.ListListsErr); err != nil {
		return service.ListPage{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return service.PageLists(f.lists, q), nil
}

// ListListsWithTasks implements service.Service.
func (f *FakeService) ListListsWithTasks(ctx context.Context) ([]service.ListWithTasks, error) {
	if err := f.enter(ctx, "ListListsWithTasks", "", f.ListListsWithTasksErr); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.ListWithTasks, 0, len(f.lists))
	for _, l := range f.lists {
		lw := service.ListWithTasks{List: l}
		for _, t := range f.tasks {
			if t.ListID == l.ID {
				lw.Tasks = append(lw.Tasks, t)
			}
		}
		out = append(out, lw)
	}
	return out, nil
}

// CreateList implements service.Service.
func (f *FakeService) CreateList(ctx context.Context, req service.CreateListRequest) (service.List, error) {
	if err := f.enter(ctx, "CreateList", "", f.CreateListErr); err != nil {
		return service.List{}, err
	}
	if err := service.ValidateListTitle(req.Title); err != nil {
		return service.List{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	l := service.List{ID: f.newID("list"), Title: req.Title, OwnerID: DefaultOwner, CreatedAt: now, UpdatedAt: now}
	f.lists = append(f.lists, l)
	return l, nil
}

// UpdateList implements service.Service.
func (f *FakeService) UpdateList(ctx context.Context, id string, req service.UpdateListRequest) (service.List, error) {
	if err := f.enter(ctx, "UpdateList", id, f.UpdateListErr); err != nil {
		return service.List{}, err
	}
	if err := service.ValidateListTitle(req.Title); err != nil {
		return service.List{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.lists, func(l service.List) bool { return l.ID == id })
	if i < 0 {
		return service.List{}, service.NotFound("List")
	}
	f.lists[i].Title = req.Title
	f.lists[i].UpdatedAt = f.tick()
	return f.lists[i], nil
}

// DeleteList implements service.Service. The list's tasks go with it.
func (f *FakeService) DeleteList(ctx context.Context, id string) error {
	if err := f.enter(ctx, "DeleteList", id, f.DeleteListErr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.lists, func(l service.List) bool { return l.ID == id })
	if i < 0 {
		return service.NotFound("List")
	}
	f.lists = slices.Delete(f.lists, i, i+1)
	f.tasks = slices.DeleteFunc(f.tasks, func(t service.Task) bool { return t.ListID == id })
	return nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, q service.TaskQuery) (service.TaskPage, error) {
	if err := f.enter(ctx, "ListTasks", q.ListID, f.ListTasksErr); err != nil {
		return service.TaskPage{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return service.PageTasks(f.tasks, q), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	if err := f.enter(ctx, "CreateTask", req.ListID, f.CreateTaskErr); err != nil {
		return service.Task{}, err
	}
	if err := service.ValidateCreateTask(req); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasList(req.ListID) {
		return service.Task{}, service.NotFound("List")
	}
	now := f.tick()
	t := service.Task{
		ID:          f.newID("task"),
		Title:       req.Title,
		Description: req.Description,
		ListID:      req.ListID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	if err := f.enter(ctx, "UpdateTask", id, f.taskErr(id, f.UpdateTaskErr)); err != nil {
		return service.Task{}, err
	}
	if err := service.ValidateTaskPatch(patch); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.tasks, func(t service.Task) bool { return t.ID == id })
	if i < 0 {
		return service.Task{}, service.NotFound("Task")
	}
	if patch.ListID != nil && !f.hasList(*patch.ListID) {
		return service.Task{}, service.NotFound("List")
	}
	t := patch.Apply(f.tasks[i])
	t.UpdatedAt = f.tick()
	f.tasks[i] = t
	return t, nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	if err := f.enter(ctx, "DeleteTask", id, f.taskErr(id, f.DeleteTaskErr)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.tasks, func(t service.Task) bool { return t.ID == id })
	if i < 0 {
		return service.NotFound("Task")
	}
	f.tasks = slices.Delete(f.tasks, i, i+1)
	return nil
}

func (f *FakeService) hasList(id string) bool {
	return slices.ContainsFunc(f.lists, func(l service.List) bool { return l.ID == id })
}
