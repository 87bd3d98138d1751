// Package service defines the backend-agnostic interface for list and task operations.
package service

import "context"

// Service defines the remote data service the stores talk to.
// All backend calls go through this interface; stores and commands never
// import a backend SDK directly.
//
// Mutating calls return the authoritative record on success. Failures are
// reported as *Error where the backend can classify them, or as a plain
// transport error otherwise.
type Service interface {
	// ListLists returns one page of the current user's lists.
	ListLists(ctx context.Context, q ListQuery) (ListPage, error)

	// ListListsWithTasks returns every list of the current user together
	// with its tasks. Used once per session to seed task counts.
	ListListsWithTasks(ctx context.Context) ([]ListWithTasks, error)

	// CreateList creates a new list owned by the current user.
	CreateList(ctx context.Context, req CreateListRequest) (List, error)

	// UpdateList renames a list.
	UpdateList(ctx context.Context, id string, req UpdateListRequest) (List, error)

	// DeleteList deletes a list and its tasks.
	DeleteList(ctx context.Context, id string) error

	// ListTasks returns one page of tasks matching q.
	ListTasks(ctx context.Context, q TaskQuery) (TaskPage, error)

	// CreateTask creates a task in req.ListID.
	CreateTask(ctx context.Context, req CreateTaskRequest) (Task, error)

	// UpdateTask applies a partial update. A non-nil ListID moves the task.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}
