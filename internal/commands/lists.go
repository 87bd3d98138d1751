package commands

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/output"
	"fluxtodo/internal/store"
)

func init() {
	Register(&ListsCmd{})
}

// ListsCmd implements the lists command.
type ListsCmd struct{}

func (c *ListsCmd) Name() string      { return "lists" }
func (c *ListsCmd) Aliases() []string { return nil }
func (c *ListsCmd) Synopsis() string  { return "Print all lists with their progress" }
func (c *ListsCmd) Usage() string     { return "fluxtodo lists [common flags]" }
func (c *ListsCmd) NeedsAuth() bool   { return true }

func (c *ListsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListsCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	snap := sess.Lists.Snapshot()
	if len(snap.Lists) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no lists")
		}
		return exitcode.Success
	}
	for _, l := range letterLists(sess) {
		output.FormatListName(out, l.Letter, l.List, snap.Counts[l.List.ID])
	}
	if n := len(snap.Lists) - maxLetters; n > 0 && !cfg.Quiet {
		fmt.Fprintf(errOut, "note: %d more lists have no letter\n", n)
	}
	return exitcode.Success
}
