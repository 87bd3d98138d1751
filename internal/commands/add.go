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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	listName string
	desc     string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "fluxtodo add [--list <list-name>] [--desc <text>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.listName, "list", "l", "", "")
	fs.StringVarP(&c.desc, "desc", "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	list, err := resolveList(sess, c.listName)
	if err != nil {
		return report(errOut, err)
	}

	in := store.CreateTaskInput{Title: title, ListID: list.ID}
	if d := strings.TrimSpace(c.desc); d != "" {
		in.Description = &d
	}
	if _, err := sess.Tasks.Create(ctx, in); err != nil {
		return report(errOut, err)
	}
	return ok(cfg, out)
}
