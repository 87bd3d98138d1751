package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"fluxtodo/internal/config"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/output"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `fluxtodo` (no args) and `fluxtodo list <list-name>`.
type ListCmd struct {
	page int
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "fluxtodo list [--page <n>] [list-name]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVarP(&c.page, "page", "p", 1, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *store.Session, args []string, out, errOut io.Writer) int {
	if c.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}
	if len(args) == 0 {
		return c.listAll(ctx, cfg, sess, out, errOut)
	}
	return c.listOne(ctx, cfg, sess, strings.Join(args, " "), out, errOut)
}

// listAll prints the first page of every lettered list.
func (c *ListCmd) listAll(ctx context.Context, cfg *config.Config, sess *store.Session, out, errOut io.Writer) int {
	lists := letterLists(sess)
	if len(lists) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no lists")
		}
		return exitcode.Success
	}
	for _, l := range lists {
		tasks, err := listTasks(ctx, sess, l.List.ID, 1)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to fetch list: %s\n", l.List.Title)
			return report(errOut, err)
		}
		output.FormatListHeader(out, l.Letter, l.List.Title, sess.Lists.Counts(l.List.ID))
		for i, t := range tasks {
			output.FormatTaskWithLetter(out, l.Letter, i+1, t)
			output.FormatDescription(out, t)
		}
		c.footer(cfg, sess, out)
	}
	return exitcode.Success
}

// listOne prints one page of a single list.
func (c *ListCmd) listOne(ctx context.Context, cfg *config.Config, sess *store.Session, name string, out, errOut io.Writer) int {
	if strings.TrimSpace(name) == "" {
		fmt.Fprintf(errOut, "error: %v\n", errEmptyName)
		return exitcode.UserError
	}
	list, err := resolveList(sess, name)
	if err != nil {
		return report(errOut, err)
	}
	tasks, err := listTasks(ctx, sess, list.ID, c.page)
	if err != nil {
		return report(errOut, err)
	}

	output.FormatListHeader(out, letterOf(sess, list.ID), list.Title, sess.Lists.Counts(list.ID))
	pageSize := service.TaskQuery{Limit: cfg.Store.PageSize}.Normalize().Limit
	start := (c.page-1)*pageSize + 1
	for i, t := range tasks {
		output.FormatTask(out, start+i, t)
		output.FormatDescription(out, t)
	}
	c.footer(cfg, sess, out)
	return exitcode.Success
}

func (c *ListCmd) footer(cfg *config.Config, sess *store.Session, out io.Writer) {
	meta := sess.Tasks.Snapshot().Page
	if cfg.Quiet || meta.TotalPages <= 1 {
		return
	}
	fmt.Fprintf(out, "page %d/%d (%d tasks)\n", meta.Page, meta.TotalPages, meta.Total)
}
