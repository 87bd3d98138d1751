package service

import "time"

// List represents a todo list.
type List struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Task represents a single task item. Description is nil when unset.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	ListID      string    `json:"listId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListWithTasks is a list together with all of its tasks.
type ListWithTasks struct {
	List
	Tasks []Task `json:"tasks"`
}

// PageMeta describes the position of a page within a result set.
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListPage is one page of lists.
type ListPage struct {
	Items []List
	Meta  PageMeta
}

// TaskPage is one page of tasks.
type TaskPage struct {
	Items []Task
	Meta  PageMeta
}

// SortField names a sortable entity field.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortTitle     SortField = "title"
	SortCompleted SortField = "completed"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	// DefaultPageSize is used when a query leaves Limit unset.
	DefaultPageSize = 20

	// MaxPageSize caps Limit.
	MaxPageSize = 100
)

// ListQuery selects a page of lists.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    SortField
	SortOrder SortOrder
}

// TaskQuery selects a page of tasks. Empty ListID and nil Completed match all.
type TaskQuery struct {
	Page      int
	Limit     int
	Search    string
	ListID    string
	Completed *bool
	SortBy    SortField
	SortOrder SortOrder
}

// CreateListRequest is the payload for CreateList.
type CreateListRequest struct {
	Title string `json:"title"`
}

// UpdateListRequest is the payload for UpdateList.
type UpdateListRequest struct {
	Title string `json:"title"`
}

// CreateTaskRequest is the payload for CreateTask.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ListID      string  `json:"listId"`
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	ListID      *string `json:"listId,omitempty"`
}

// Apply returns t with the patch applied. UpdatedAt is not touched.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.ListID != nil {
		t.ListID = *p.ListID
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil && p.ListID == nil
}

// Normalize fills in defaults and clamps the page window.
func (q ListQuery) Normalize() ListQuery {
	q.Page, q.Limit = normalizeWindow(q.Page, q.Limit)
	q.SortBy, q.SortOrder = normalizeSort(q.SortBy, q.SortOrder)
	if q.SortBy == SortCompleted {
		q.SortBy = SortCreatedAt
	}
	return q
}

// Normalize fills in defaults and clamps the page window.
func (q TaskQuery) Normalize() TaskQuery {
	q.Page, q.Limit = normalizeWindow(q.Page, q.Limit)
	q.SortBy, q.SortOrder = normalizeSort(q.SortBy, q.SortOrder)
	return q
}

func normalizeWindow(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func normalizeSort(by SortField, order SortOrder) (SortField, SortOrder) {
	switch by {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortCompleted:
	default:
		by = SortCreatedAt
	}
	if order != SortAsc {
		order = SortDesc
	}
	return by, order
}

// Meta builds page metadata for total matching records.
func Meta(page, limit, total int) PageMeta {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return PageMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
