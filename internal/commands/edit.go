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
	Register(&EditCmd{})
}

// EditCmd implements the edit command: retitle, redescribe or move a task.
type EditCmd struct {
	listName string
	title    string
	desc     string
	move     string

	fs *flag.FlagSet
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"mv"} }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, description or list" }
func (c *EditCmd) Usage() string {
	return "fluxtodo edit [--list <list-name>] <ref> [--title <text>] [--desc <text>] [--move <list-name>]"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.fs = fs
	fs.StringVarP(&c.listName, "list", "l", "", "")
	fs.StringVarP(&c.title, "title", "t", "", "")
	fs.StringVarP(&c.desc, "desc", "d", "", "")
	fs.StringVarP(&c.move, "move", "m", "", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	var patch service.TaskPatch
	if c.changed("title") {
		patch.Title = &c.title
	}
	if c.changed("desc") {
		patch.Description = &c.desc
	}
	if c.move != "" {
		target, err := resolveList(sess, c.move)
		if err != nil {
			return report(errOut, err)
		}
		patch.ListID = &target.ID
	}
	if patch.IsEmpty() {
		fmt.Fprintln(errOut, "error: nothing to change (use --title, --desc or --move)")
		return exitcode.UserError
	}

	task, code, found := pickTask(ctx, cfg, sess, c.listName, args, errOut)
	if !found {
		return code
	}
	if patch.ListID != nil && *patch.ListID == task.ListID {
		patch.ListID = nil
		if patch.IsEmpty() {
			return ok(cfg, out)
		}
	}
	if err := sess.Tasks.Update(ctx, task.ID, patch); err != nil {
		return report(errOut, err)
	}
	return ok(cfg, out)
}

// changed reports whether flag name was given, so an empty --desc clears
// the description.
func (c *EditCmd) changed(name string) bool {
	return c.fs != nil && c.fs.Changed(name)
}
