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
	Register(&RenameListCmd{})
}

// RenameListCmd implements the renamelist command.
type RenameListCmd struct {
	to string
}

func (c *RenameListCmd) Name() string      { return "renamelist" }
func (c *RenameListCmd) Aliases() []string { return nil }
func (c *RenameListCmd) Synopsis() string  { return "Rename a list" }
func (c *RenameListCmd) Usage() string     { return "fluxtodo renamelist <list-name> --to <new-name>" }
func (c *RenameListCmd) NeedsAuth() bool   { return true }

func (c *RenameListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.to, "to", "", "")
}

func (c *RenameListCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintf(errOut, "error: %v\n", errEmptyName)
		return exitcode.UserError
	}
	to := strings.TrimSpace(c.to)
	if to == "" {
		fmt.Fprintln(errOut, "error: new name required (use --to)")
		return exitcode.UserError
	}
	list, err := resolveList(sess, name)
	if err != nil {
		return report(errOut, err)
	}
	if list.Title == to {
		return ok(cfg, out)
	}
	if err := sess.Lists.Update(ctx, list.ID, to); err != nil {
		return report(errOut, err)
	}
	return ok(cfg, out)
}
