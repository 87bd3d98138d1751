package commands

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
)

func init() {
	Register(&ClearCmd{})
	Register(&DoneAllCmd{})
}

// maxBulkRounds bounds the fetch-and-apply loop of the bulk commands.
const maxBulkRounds = 1000

// bulkFunc applies a bulk store operation to the cached tasks of listID.
type bulkFunc func(ctx context.Context, listID string) error

// runBulk repeatedly loads the first page of tasks whose completion flag is
// completed and applies op to it, until no such task is left. An empty
// listName means every list. Returns the number of tasks handled.
func runBulk(ctx context.Context, sess *store.Session, listName string, completed bool, op bulkFunc) (int, error) {
	listID := ""
	if listName != "" {
		list, err := resolveList(sess, listName)
		if err != nil {
			return 0, err
		}
		listID = list.ID
	}

	sess.Tasks.SetSearch("")
	sess.Tasks.SetFilters(store.Filters{
		ListID:    listID,
		Completed: &completed,
		SortBy:    service.SortCreatedAt,
		SortOrder: service.SortAsc,
	})

	done := 0
	for range maxBulkRounds {
		if err := sess.Tasks.Fetch(ctx, 1); err != nil {
			return done, err
		}
		n := len(sess.Tasks.Filtered())
		if n == 0 {
			return done, nil
		}
		if err := op(ctx, listID); err != nil {
			return done, err
		}
		done += n
	}
	return done, nil
}

// ClearCmd implements the clear command.
type ClearCmd struct {
	listName string
}

func (c *ClearCmd) Name() string      { return "clear" }
func (c *ClearCmd) Aliases() []string { return nil }
func (c *ClearCmd) Synopsis() string  { return "Delete completed tasks" }
func (c *ClearCmd) Usage() string     { return "fluxtodo clear [--list <list-name>]" }
func (c *ClearCmd) NeedsAuth() bool   { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.listName, "list", "l", "", "")
}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	n, err := runBulk(ctx, sess, c.listName, true, sess.Tasks.DeleteCompleted)
	if err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "removed %d completed %s\n", n, plural(n, "task"))
	}
	return exitcode.Success
}

// DoneAllCmd implements the doneall command.
type DoneAllCmd struct {
	listName string
}

func (c *DoneAllCmd) Name() string      { return "doneall" }
func (c *DoneAllCmd) Aliases() []string { return nil }
func (c *DoneAllCmd) Synopsis() string  { return "Mark every open task completed" }
func (c *DoneAllCmd) Usage() string     { return "fluxtodo doneall [--list <list-name>]" }
func (c *DoneAllCmd) NeedsAuth() bool   { return true }

func (c *DoneAllCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.listName, "list", "l", "", "")
}

func (c *DoneAllCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	n, err := runBulk(ctx, sess, c.listName, false, sess.Tasks.MarkAllComplete)
	if err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "completed %d %s\n", n, plural(n, "task"))
	}
	return exitcode.Success
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
