package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
)

// maxLetters is the number of lists that can be addressed by letter.
const maxLetters = 26

var (
	errNoLists   = errors.New("no lists (create one with: fluxtodo createlist <name>)")
	errEmptyName = errors.New("list name required")
)

// lettered is a list together with its display letter.
type lettered struct {
	Letter rune
	List   service.List
}

// letterLists assigns letters a..z to the loaded lists in collection order.
// The dispatcher loads lists oldest first so letters stay stable as lists
// are added.
func letterLists(sess *store.Session) []lettered {
	lists := sess.Lists.Snapshot().Lists
	out := make([]lettered, 0, min(len(lists), maxLetters))
	for i, l := range lists {
		if i == maxLetters {
			break
		}
		out = append(out, lettered{Letter: rune('a' + i), List: l})
	}
	return out
}

// listByLetter returns the list shown under letter.
func listByLetter(sess *store.Session, letter rune) (service.List, error) {
	for _, l := range letterLists(sess) {
		if l.Letter == letter {
			return l.List, nil
		}
	}
	return service.List{}, fmt.Errorf("list letter not found: %c", letter)
}

// resolveList finds a list by name. An empty name selects the first list.
// Matching tries a case-insensitive exact title, then a single list letter,
// then a unique title prefix.
func resolveList(sess *store.Session, name string) (service.List, error) {
	all := letterLists(sess)
	name = strings.TrimSpace(name)
	if name == "" {
		if len(all) == 0 {
			return service.List{}, errNoLists
		}
		return all[0].List, nil
	}

	var exact []service.List
	for _, l := range all {
		if strings.EqualFold(l.List.Title, name) {
			exact = append(exact, l.List)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		return service.List{}, fmt.Errorf("ambiguous list name: %s", name)
	}

	if len(name) == 1 && isLetter(rune(name[0])) {
		if l, err := listByLetter(sess, rune(name[0])); err == nil {
			return l, nil
		}
	}

	var prefixed []service.List
	lower := strings.ToLower(name)
	for _, l := range all {
		if strings.HasPrefix(strings.ToLower(l.List.Title), lower) {
			prefixed = append(prefixed, l.List)
		}
	}
	switch len(prefixed) {
	case 0:
		return service.List{}, fmt.Errorf("list not found: %s", name)
	case 1:
		return prefixed[0], nil
	default:
		return service.List{}, fmt.Errorf("ambiguous list name: %s", name)
	}
}

// letterOf returns the display letter of listID, or '?' when it has none.
func letterOf(sess *store.Session, listID string) rune {
	for _, l := range letterLists(sess) {
		if l.List.ID == listID {
			return l.Letter
		}
	}
	return '?'
}

// listTasks loads the given page of listID's tasks, oldest first, and
// returns them.
func listTasks(ctx context.Context, sess *store.Session, listID string, page int) ([]service.Task, error) {
	sess.Tasks.SetSearch("")
	sess.Tasks.SetFilters(store.Filters{
		ListID:    listID,
		SortBy:    service.SortCreatedAt,
		SortOrder: service.SortAsc,
	})
	if err := sess.Tasks.Fetch(ctx, page); err != nil {
		return nil, err
	}
	return sess.Tasks.Filtered(), nil
}

// findTaskByNumber loads the page holding the num-th task of listID and
// returns that task. The task stays in the session cache so it can be
// mutated.
func findTaskByNumber(ctx context.Context, sess *store.Session, listID string, num, pageSize int) (service.Task, error) {
	if num < 1 {
		return service.Task{}, fmt.Errorf("task number out of range: %d", num)
	}
	pageSize = service.TaskQuery{Limit: pageSize}.Normalize().Limit
	page := (num-1)/pageSize + 1
	index := (num - 1) % pageSize

	tasks, err := listTasks(ctx, sess, listID, page)
	if err != nil {
		return service.Task{}, err
	}
	if index >= len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", num)
	}
	return tasks[index], nil
}

// resolveTask resolves a task reference. A reference without a letter
// addresses listName, or the first list when listName is empty.
func resolveTask(ctx context.Context, sess *store.Session, ref TaskRef, listName string, pageSize int) (service.Task, service.List, error) {
	var (
		list service.List
		err  error
	)
	if ref.HasLetter() {
		list, err = listByLetter(sess, ref.Letter)
	} else {
		list, err = resolveList(sess, listName)
	}
	if err != nil {
		return service.Task{}, service.List{}, err
	}
	task, err := findTaskByNumber(ctx, sess, list.ID, ref.Num, pageSize)
	if err != nil {
		return service.Task{}, service.List{}, err
	}
	return task, list, nil
}

// report prints err and returns the matching exit code. Errors not raised by
// a store or a backend are usage errors.
func report(errOut io.Writer, err error) int {
	var verr *store.ValidationError
	var opErr *store.OpError
	switch {
	case errors.Is(err, store.ErrNotAuthenticated), service.IsUnauthorized(err):
		fmt.Fprintln(errOut, "error: not signed in (run: fluxtodo login)")
		return exitcode.AuthError
	case errors.As(err, &verr):
		fmt.Fprintf(errOut, "error: %s\n", verr.Message)
		return exitcode.UserError
	case errors.Is(err, store.ErrBusy), errors.Is(err, store.ErrPending), errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(errOut, "error: %s\n", service.Message(err, "rejected"))
		return exitcode.UserError
	case service.IsRateLimited(err):
		fmt.Fprintln(errOut, "error: too many requests, try again in a moment")
		return exitcode.BackendError
	}

	if e, ok := service.AsError(err); ok {
		fmt.Fprintf(errOut, "error: %s\n", service.Message(e, "request failed"))
		switch e.Code {
		case service.CodeValidation, service.CodeNotFound, service.CodeConflict, service.CodeForbidden:
			return exitcode.UserError
		}
		return exitcode.BackendError
	}
	if errors.As(err, &opErr) {
		fmt.Fprintf(errOut, "error: backend error: %s\n", opErr.Message)
		return exitcode.BackendError
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}

// LoadSession orders lists and tasks oldest first, which is the order list
// letters and task numbers are assigned in, and loads the first page of
// each.
func LoadSession(ctx context.Context, sess *store.Session) error {
	sess.Lists.SetSort(service.SortCreatedAt, service.SortAsc)
	sess.Tasks.SetFilters(store.Filters{SortBy: service.SortCreatedAt, SortOrder: service.SortAsc})
	return sess.Load(ctx)
}

// pickTask resolves the task reference at the front of args. On failure it
// prints the error and returns false with the exit code to use.
func pickTask(ctx context.Context, cfg *config.Config, sess *store.Session, listName string, args []string, errOut io.Writer) (service.Task, int, bool) {
	ref, used, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError, false
	}
	if len(args) > used {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[used])
		return service.Task{}, exitcode.UserError, false
	}
	if listName != "" && ref.HasLetter() {
		fmt.Fprintln(errOut, "error: cannot use both --list and list letter")
		return service.Task{}, exitcode.UserError, false
	}
	task, _, err := resolveTask(ctx, sess, ref, listName, cfg.Store.PageSize)
	if err != nil {
		return service.Task{}, report(errOut, err), false
	}
	return task, exitcode.Success, true
}

// ok prints the acknowledgement unless --quiet is set.
func ok(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
