package commands

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/store"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	listName string
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return nil }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "fluxtodo rm [--list <list-name>] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.listName, "list", "l", "", "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	task, code, found := pickTask(ctx, cfg, sess, c.listName, args, errOut)
	if !found {
		return code
	}
	if err := sess.Tasks.Delete(ctx, task.ID); err != nil {
		return report(errOut, err)
	}
	return ok(cfg, out)
}
