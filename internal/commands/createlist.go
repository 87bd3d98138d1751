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
	Register(&CreateListCmd{})
}

// CreateListCmd implements the createlist command.
type CreateListCmd struct{}

func (c *CreateListCmd) Name() string      { return "createlist" }
func (c *CreateListCmd) Aliases() []string { return []string{"addlist"} }
func (c *CreateListCmd) Synopsis() string  { return "Create a list" }
func (c *CreateListCmd) Usage() string     { return "fluxtodo createlist <list-name>" }
func (c *CreateListCmd) NeedsAuth() bool   { return true }

func (c *CreateListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CreateListCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintf(errOut, "error: %v\n", errEmptyName)
		return exitcode.UserError
	}
	for _, l := range sess.Lists.Snapshot().Lists {
		if strings.EqualFold(l.Title, name) {
			fmt.Fprintf(errOut, "error: list already exists: %s\n", l.Title)
			return exitcode.UserError
		}
	}
	if _, err := sess.Lists.Create(ctx, name); err != nil {
		return report(errOut, err)
	}
	return ok(cfg, out)
}
