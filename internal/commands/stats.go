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
	Register(&StatsCmd{})
}

// StatsCmd implements the stats command. Totals come from the per-list
// count table, so no task pages are fetched.
type StatsCmd struct {
	listName string
}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Print completion totals" }
func (c *StatsCmd) Usage() string     { return "fluxtodo stats [--list <list-name>]" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.listName, "list", "l", "", "")
}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.listName != "" {
		list, err := resolveList(sess, c.listName)
		if err != nil {
			return report(errOut, err)
		}
		count := sess.Lists.Counts(list.ID)
		output.FormatStats(out, count.Total, count.Completed)
		return exitcode.Success
	}

	var total store.TaskCount
	for _, count := range sess.Lists.Snapshot().Counts {
		total.Total += count.Total
		total.Completed += count.Completed
	}
	output.FormatStats(out, total.Total, total.Completed)
	return exitcode.Success
}
