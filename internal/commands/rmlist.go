package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/store"
)

func init() {
	Register(&RmListCmd{})
}

// RmListCmd implements the rmlist command.
type RmListCmd struct {
	force bool
}

func (c *RmListCmd) Name() string      { return "rmlist" }
func (c *RmListCmd) Aliases() []string { return nil }
func (c *RmListCmd) Synopsis() string  { return "Delete a list and its tasks" }
func (c *RmListCmd) Usage() string     { return "fluxtodo rmlist [--force] <list-name>" }
func (c *RmListCmd) NeedsAuth() bool   { return true }

func (c *RmListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVarP(&c.force, "force", "f", false, "")
}

func (c *RmListCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintf(errOut, "error: %v\n", errEmptyName)
		return exitcode.UserError
	}
	list, err := resolveList(sess, name)
	if err != nil {
		return report(errOut, err)
	}

	// Open tasks block deletion; completed ones go with the list.
	if count := sess.Lists.Counts(list.ID); !c.force && count.Total > count.Completed {
		fmt.Fprintln(errOut, "error: list not empty (use --force)")
		return exitcode.UserError
	}
	if err := sess.Lists.Delete(ctx, list.ID); err != nil {
		return report(errOut, err)
	}
	return ok(cfg, out)
}
