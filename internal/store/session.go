package store

import (
	"context"
	"errors"
	"sync"

	"fluxtodo/internal/service"
)

// Session owns one user's ListStore and TaskStore. It is created at sign-in
// and closed at sign-out; tests build as many isolated sessions as they need.
type Session struct {
	Lists *ListStore
	Tasks *TaskStore

	svc       service.Service
	closeOnce sync.Once
}

// NewSession builds both stores over svc and connects the TaskStore's count
// effects to the ListStore. A WithCountSink option is ignored.
func NewSession(svc service.Service, opts ...Option) *Session {
	o := buildOptions(opts)
	lists := newListStore(svc, o)
	o.counts = lists
	tasks := newTaskStore(svc, o)
	return &Session{Lists: lists, Tasks: tasks, svc: svc}
}

// Load fetches the first page of lists and tasks and seeds the task counts
// from the server's lists-with-tasks view. Fetch errors are recorded in the
// stores and also returned, joined.
func (s *Session) Load(ctx context.Context) error {
	errs := []error{
		s.Lists.Fetch(ctx, 1),
		s.Tasks.Fetch(ctx, 1),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	withTasks, err := s.svc.ListListsWithTasks(ctx)
	if err != nil {
		s.Lists.mu.Lock()
		defer s.Lists.mu.Unlock()
		return s.Lists.fail("load task counts", "Failed to load task counts", err)
	}
	s.Lists.InitializeFromSnapshot(withTasks)
	return nil
}

// SessionSnapshot is a consistent copy of both stores.
type SessionSnapshot struct {
	Lists ListSnapshot
	Tasks TaskSnapshot
}

// Snapshot copies both stores under their locks, tasks first, so the task
// collection and the count table are observed from the same step.
func (s *Session) Snapshot() SessionSnapshot {
	s.Tasks.mu.Lock()
	defer s.Tasks.mu.Unlock()
	s.Lists.mu.Lock()
	defer s.Lists.mu.Unlock()
	return SessionSnapshot{
		Lists: s.Lists.snapshotLocked(),
		Tasks: s.Tasks.snapshotLocked(),
	}
}

// Close drops all cached state. Operations started afterwards fail with
// ErrClosed; results of calls already in flight are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Tasks.close()
		s.Lists.close()
	})
}
