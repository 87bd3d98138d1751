package service

import (
	"cmp"
	"slices"
	"strings"
)

// MatchTask reports whether t passes the search and filter fields of q.
// Search is a case-insensitive substring match on title or description.
func MatchTask(t Task, q TaskQuery) bool {
	if q.ListID != "" && t.ListID != q.ListID {
		return false
	}
	if q.Completed != nil && t.Completed != *q.Completed {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}

// CompareTasks orders two tasks by field. Equal keys compare as 0.
func CompareTasks(a, b Task, by SortField) int {
	switch by {
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortCompleted:
		return compareBool(a.Completed, b.Completed)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// CompareLists orders two lists by field. Equal keys compare as 0.
func CompareLists(a, b List, by SortField) int {
	switch by {
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// SortTasks stable-sorts tasks in place; ties keep their input order.
func SortTasks(tasks []Task, by SortField, order SortOrder) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		c := CompareTasks(a, b, by)
		if order == SortDesc {
			return -c
		}
		return c
	})
}

// PageTasks filters, sorts and pages tasks the way a server would.
// The input slice is not modified.
func PageTasks(tasks []Task, q TaskQuery) TaskPage {
	q = q.Normalize()
	var matched []Task
	for _, t := range tasks {
		if MatchTask(t, q) {
			matched = append(matched, t)
		}
	}
	SortTasks(matched, q.SortBy, q.SortOrder)
	return TaskPage{Items: window(matched, q.Page, q.Limit), Meta: Meta(q.Page, q.Limit, len(matched))}
}

// PageLists filters, sorts and pages lists the way a server would.
func PageLists(lists []List, q ListQuery) ListPage {
	q = q.Normalize()
	needle := strings.ToLower(q.Search)
	var matched []List
	for _, l := range lists {
		if needle == "" || strings.Contains(strings.ToLower(l.Title), needle) {
			matched = append(matched, l)
		}
	}
	slices.SortStableFunc(matched, func(a, b List) int {
		c := CompareLists(a, b, q.SortBy)
		if q.SortOrder == SortDesc {
			return -c
		}
		return c
	})
	return ListPage{Items: window(matched, q.Page, q.Limit), Meta: Meta(q.Page, q.Limit, len(matched))}
}

func window[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := min(start+limit, len(items))
	return slices.Clone(items[start:end])
}

func compareBool(a, b bool) int {
	return cmp.Compare(boolInt(a), boolInt(b))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
