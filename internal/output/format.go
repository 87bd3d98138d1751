// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// FormatTask formats a task line: "{N:>4}  [x] {TITLE}\n".
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, checkbox(task.Completed), normalizeTitle(task.Title))
}

// FormatTaskWithLetter formats a task line in a lettered list section:
// "{L}{N:<3}  [x] {TITLE}\n".
func FormatTaskWithLetter(w io.Writer, letter rune, num int, task service.Task) {
	ref := fmt.Sprintf("%c%d", letter, num)
	fmt.Fprintf(w, "%5s  %s %s\n", ref, checkbox(task.Completed), normalizeTitle(task.Title))
}

// FormatDescription prints a task description under its task line.
func FormatDescription(w io.Writer, task service.Task) {
	if task.Description == nil || strings.TrimSpace(*task.Description) == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(*task.Description), "\n") {
		fmt.Fprintf(w, "         %s\n", strings.TrimRight(line, "\r"))
	}
}

// FormatListHeader formats a list section header with its progress.
func FormatListHeader(w io.Writer, letter rune, title string, count store.TaskCount) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%c) %s %s\n", letter, normalizeListTitle(title), progress(count))
	fmt.Fprintln(w, ListSeparator)
}

// FormatListName formats a list line for the lists command.
func FormatListName(w io.Writer, letter rune, list service.List, count store.TaskCount) {
	fmt.Fprintf(w, "%c  %s %s\n", letter, normalizeListTitle(list.Title), progress(count))
}

// FormatStats prints completion totals.
func FormatStats(w io.Writer, total, completed int) {
	pct := 0
	if total > 0 {
		pct = completed * 100 / total
	}
	fmt.Fprintf(w, "total:     %d\n", total)
	fmt.Fprintf(w, "completed: %d (%d%%)\n", completed, pct)
	fmt.Fprintf(w, "pending:   %d\n", total-completed)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func progress(c store.TaskCount) string {
	return fmt.Sprintf("(%d/%d)", c.Completed, c.Total)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// normalizeListTitle normalizes a list title for display.
// Empty or whitespace-only titles become "(untitled)".
func normalizeListTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
