package commands

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/store"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It toggles completion, so running it
// on a completed task reopens it.
type DoneCmd struct {
	listName string
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle a task's completion" }
func (c *DoneCmd) Usage() string     { return "fluxtodo done [--list <list-name>] <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.listName, "list", "l", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	task, code, found := pickTask(ctx, cfg, sess, c.listName, args, errOut)
	if !found {
		return code
	}
	if err := sess.Tasks.ToggleComplete(ctx, task.ID); err != nil {
		return report(errOut, err)
	}
	if cfg.Quiet {
		return exitcode.Success
	}
	if task.Completed {
		fmt.Fprintln(out, "reopened")
	} else {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
