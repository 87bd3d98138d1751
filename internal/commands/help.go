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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "fluxtodo help [command]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, helpText)
		return exitcode.Success
	}
	cmd, found := DefaultRegistry.Find(args[0])
	if !found {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}
	fmt.Fprintf(out, "%s\n\n  %s\n", cmd.Synopsis(), cmd.Usage())
	if aliases := cmd.Aliases(); len(aliases) > 0 {
		fmt.Fprintf(out, "\nAliases: %v\n", aliases)
	}
	return exitcode.Success
}

const helpText = `Usage:
  fluxtodo                                      List tasks in every list
  fluxtodo list [--page <n>] [list-name]        List tasks in one list
  fluxtodo lists                                Print lists with progress
  fluxtodo add [-l <list>] [-d <text>] <title...>
  fluxtodo edit [-l <list>] <ref> [--title <text>] [--desc <text>] [--move <list>]
  fluxtodo done [-l <list>] <ref>               Toggle completion
  fluxtodo rm [-l <list>] <ref>
  fluxtodo clear [-l <list>]                    Delete completed tasks
  fluxtodo doneall [-l <list>]                  Complete every open task
  fluxtodo stats [-l <list>]
  fluxtodo createlist <list-name>
  fluxtodo renamelist <list-name> --to <new-name>
  fluxtodo rmlist [--force] <list-name>
  fluxtodo serve [--addr <host:port>]           Serve the HTTP API
  fluxtodo login
  fluxtodo logout [--all]
  fluxtodo help [command]
  fluxtodo version [-v]

A <ref> is a task number in the first list (3), or a list letter followed
by a number (b3 or b 3).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
