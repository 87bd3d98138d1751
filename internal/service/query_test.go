package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func task(id, title string, minute int, completed bool) Task {
	at := base.Add(time.Duration(minute) * time.Minute)
	return Task{ID: id, Title: title, ListID: "l1", Completed: completed, CreatedAt: at, UpdatedAt: at}
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestTaskQueryNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   TaskQuery
		want TaskQuery
	}{
		{"defaults", TaskQuery{}, TaskQuery{Page: 1, Limit: DefaultPageSize, SortBy: SortCreatedAt, SortOrder: SortDesc}},
		{"clamps limit", TaskQuery{Page: 3, Limit: 500}, TaskQuery{Page: 3, Limit: MaxPageSize, SortBy: SortCreatedAt, SortOrder: SortDesc}},
		{"negative page", TaskQuery{Page: -2, Limit: 5}, TaskQuery{Page: 1, Limit: 5, SortBy: SortCreatedAt, SortOrder: SortDesc}},
		{"unknown sort", TaskQuery{SortBy: "priority", SortOrder: "up"}, TaskQuery{Page: 1, Limit: DefaultPageSize, SortBy: SortCreatedAt, SortOrder: SortDesc}},
		{"keeps valid sort", TaskQuery{SortBy: SortTitle, SortOrder: SortAsc}, TaskQuery{Page: 1, Limit: DefaultPageSize, SortBy: SortTitle, SortOrder: SortAsc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.in.Normalize()); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListQueryNormalize_RejectsCompletedSort(t *testing.T) {
	q := ListQuery{SortBy: SortCompleted, SortOrder: SortAsc}.Normalize()
	if q.SortBy != SortCreatedAt {
		t.Errorf("SortBy = %q, want %q", q.SortBy, SortCreatedAt)
	}
}

func TestMatchTask(t *testing.T) {
	desc := "Buy from the FARM shop"
	tk := Task{Title: "Milk", Description: &desc, ListID: "l1"}
	yes, no := true, false

	tests := []struct {
		name string
		q    TaskQuery
		want bool
	}{
		{"empty query", TaskQuery{}, true},
		{"title match", TaskQuery{Search: "mil"}, true},
		{"description match", TaskQuery{Search: "farm"}, true},
		{"no match", TaskQuery{Search: "bread"}, false},
		{"other list", TaskQuery{ListID: "l2"}, false},
		{"completed filter", TaskQuery{Completed: &yes}, false},
		{"open filter", TaskQuery{Completed: &no}, true},
	}
	for _, tt := range tests {
		if got := MatchTask(tk, tt.q); got != tt.want {
			t.Errorf("%s: MatchTask() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMatchTask_NilDescription(t *testing.T) {
	if MatchTask(Task{Title: "Milk"}, TaskQuery{Search: "farm"}) {
		t.Error("matched a search term against a nil description")
	}
}

func TestSortTasks_StableOnTies(t *testing.T) {
	tasks := []Task{
		task("t1", "b", 0, false),
		task("t2", "a", 0, true),
		task("t3", "a", 1, false),
	}

	SortTasks(tasks, SortTitle, SortAsc)
	if diff := cmp.Diff([]string{"t2", "t3", "t1"}, ids(tasks)); diff != "" {
		t.Errorf("title asc mismatch (-want +got):\n%s", diff)
	}

	SortTasks(tasks, SortCompleted, SortDesc)
	if diff := cmp.Diff([]string{"t2", "t3", "t1"}, ids(tasks)); diff != "" {
		t.Errorf("completed desc mismatch (-want +got):\n%s", diff)
	}

	SortTasks(tasks, SortCreatedAt, SortAsc)
	if diff := cmp.Diff([]string{"t2", "t1", "t3"}, ids(tasks)); diff != "" {
		t.Errorf("createdAt asc mismatch (-want +got):\n%s", diff)
	}
}

func TestPageTasks(t *testing.T) {
	var all []Task
	for i, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		all = append(all, task(id, "task "+id, i, i%2 == 0))
	}

	page := PageTasks(all, TaskQuery{Page: 2, Limit: 2, SortBy: SortCreatedAt, SortOrder: SortAsc})
	if diff := cmp.Diff([]string{"t3", "t4"}, ids(page.Items)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	want := PageMeta{Page: 2, Limit: 2, Total: 5, TotalPages: 3}
	if diff := cmp.Diff(want, page.Meta); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}

	done := true
	page = PageTasks(all, TaskQuery{Completed: &done, SortBy: SortCreatedAt, SortOrder: SortDesc})
	if diff := cmp.Diff([]string{"t5", "t3", "t1"}, ids(page.Items)); diff != "" {
		t.Errorf("completed items mismatch (-want +got):\n%s", diff)
	}

	page = PageTasks(all, TaskQuery{Page: 9})
	if len(page.Items) != 0 {
		t.Errorf("page past the end returned %d items", len(page.Items))
	}
	if page.Meta.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Meta.Total)
	}
}

func TestPageTasks_DoesNotModifyInput(t *testing.T) {
	all := []Task{task("t1", "b", 0, false), task("t2", "a", 1, false)}
	PageTasks(all, TaskQuery{SortBy: SortTitle, SortOrder: SortAsc})
	if diff := cmp.Diff([]string{"t1", "t2"}, ids(all)); diff != "" {
		t.Errorf("input reordered (-want +got):\n%s", diff)
	}
}

func TestPageLists(t *testing.T) {
	lists := []List{
		{ID: "l1", Title: "Groceries", CreatedAt: base},
		{ID: "l2", Title: "Work", CreatedAt: base.Add(time.Minute)},
		{ID: "l3", Title: "garden", CreatedAt: base.Add(2 * time.Minute)},
	}
	page := PageLists(lists, ListQuery{Search: "G", SortBy: SortCreatedAt, SortOrder: SortAsc})
	got := make([]string, len(page.Items))
	for i, l := range page.Items {
		got[i] = l.ID
	}
	if diff := cmp.Diff([]string{"l1", "l3"}, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestMeta(t *testing.T) {
	tests := []struct {
		total, limit, pages int
	}{
		{0, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 2, 3},
	}
	for _, tt := range tests {
		if got := Meta(1, tt.limit, tt.total).TotalPages; got != tt.pages {
			t.Errorf("Meta(total=%d, limit=%d).TotalPages = %d, want %d", tt.total, tt.limit, got, tt.pages)
		}
	}
}

func TestTaskPatch(t *testing.T) {
	if !(TaskPatch{}).IsEmpty() {
		t.Error("zero patch is not empty")
	}

	title, desc, list, done := "New", "details", "l2", true
	p := TaskPatch{Title: &title, Description: &desc, ListID: &list, Completed: &done}
	if p.IsEmpty() {
		t.Error("full patch reported empty")
	}

	orig := task("t1", "Old", 0, false)
	got := p.Apply(orig)
	if got.Title != "New" || got.ListID != "l2" || !got.Completed || got.Description == nil || *got.Description != "details" {
		t.Errorf("Apply() = %+v", got)
	}
	if !got.UpdatedAt.Equal(orig.UpdatedAt) {
		t.Error("Apply() touched UpdatedAt")
	}

	desc = "changed"
	if *got.Description != "details" {
		t.Error("Apply() aliased the patch description")
	}
}
