package store

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"fluxtodo/internal/service"
)

const (
	opDeleteCompleted = "delete completed tasks"
	opMarkAllComplete = "mark all tasks complete"
)

// entry is a task together with its position before a batch was applied.
type entry struct {
	index int
	task  service.Task
}

// selectLocked returns the confirmed tasks in scope that satisfy keep.
// An empty listID selects every list.
func (s *TaskStore) selectLocked(listID string, keep func(service.Task) bool) []entry {
	var out []entry
	for i, t := range s.tasks {
		if listID != "" && t.ListID != listID {
			continue
		}
		if IsPending(t.ID) || !keep(t) {
			continue
		}
		out = append(out, entry{index: i, task: cloneTask(t)})
	}
	return out
}

// claimAllLocked rejects the whole batch if any member is busy.
func (s *TaskStore) claimAllLocked(op string, batch []entry) error {
	for _, e := range batch {
		if s.busy(e.task.ID) {
			return s.reject(op, ErrBusy)
		}
	}
	return nil
}

// runBatch calls fn for each member with at most bulkLimit calls in flight
// and returns every failure in batch order.
func (s *TaskStore) runBatch(ctx context.Context, batch []entry, fn func(context.Context, service.Task) (service.Task, error)) ([]service.Task, []error) {
	results := make([]service.Task, len(batch))
	errs := make([]error, len(batch))

	var g errgroup.Group
	g.SetLimit(s.bulkLimit)
	for i, e := range batch {
		g.Go(func() error {
			results[i], errs[i] = fn(ctx, e.task)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return results, failed
}

// DeleteCompleted removes every completed task, optionally scoped to one
// list. If any remote delete fails the whole batch is restored.
func (s *TaskStore) DeleteCompleted(ctx context.Context, listID string) error {
	s.mu.Lock()
	if err := s.begin(ctx, opDeleteCompleted); err != nil {
		s.mu.Unlock()
		return err
	}
	batch := s.selectLocked(listID, func(t service.Task) bool { return t.Completed })
	if err := s.claimAllLocked(opDeleteCompleted, batch); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	effs := make([]Effect, 0, len(batch))
	s.tasks = slices.DeleteFunc(s.tasks, func(t service.Task) bool {
		return slices.ContainsFunc(batch, func(e entry) bool { return e.task.ID == t.ID })
	})
	for _, e := range batch {
		s.deleting[e.task.ID] = true
		effs = append(effs, decrement(e.task.ListID, e.task.Completed))
	}
	s.totalCount = max(s.totalCount-len(batch), 0)
	s.emit(effs...)
	s.mu.Unlock()

	_, failed := s.runBatch(ctx, batch, func(ctx context.Context, t service.Task) (service.Task, error) {
		return t, s.svc.DeleteTask(ctx, t.ID)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range batch {
		delete(s.deleting, e.task.ID)
	}
	if len(failed) == 0 {
		return nil
	}
	if !s.closed {
		// Ascending original indices so each reinsert lands where it was.
		for _, e := range batch {
			if indexOf(s.tasks, e.task.ID, taskID) >= 0 {
				continue
			}
			s.tasks = slices.Insert(s.tasks, min(e.index, len(s.tasks)), e.task)
			s.totalCount++
		}
		s.emit(invert(effs)...)
	}
	return s.failBatch(opDeleteCompleted, "Failed to delete completed tasks", failed)
}

// MarkAllComplete completes every open task, optionally scoped to one list.
// If any remote update fails every task in the batch gets its prior record
// back.
func (s *TaskStore) MarkAllComplete(ctx context.Context, listID string) error {
	s.mu.Lock()
	if err := s.begin(ctx, opMarkAllComplete); err != nil {
		s.mu.Unlock()
		return err
	}
	batch := s.selectLocked(listID, func(t service.Task) bool { return !t.Completed })
	if err := s.claimAllLocked(opMarkAllComplete, batch); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	effs := make([]Effect, 0, len(batch))
	for _, e := range batch {
		s.tasks[e.index].Completed = true
		s.tasks[e.index].UpdatedAt = now
		s.updating[e.task.ID] = true
		effs = append(effs, transition(e.task.ListID, false, true))
	}
	s.emit(effs...)
	s.mu.Unlock()

	done := true
	patch := service.TaskPatch{Completed: &done}
	results, failed := s.runBatch(ctx, batch, func(ctx context.Context, t service.Task) (service.Task, error) {
		return s.svc.UpdateTask(ctx, t.ID, patch)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range batch {
		delete(s.updating, e.task.ID)
	}
	if len(failed) == 0 {
		for i, t := range results {
			optimistic := batch[i].task
			optimistic.Completed = true
			s.reconcileLocked(optimistic, t)
		}
		return nil
	}
	for i, e := range batch {
		s.revertLocked(e.task, effs[i:i+1])
	}
	return s.failBatch(opMarkAllComplete, "Failed to complete tasks", failed)
}
