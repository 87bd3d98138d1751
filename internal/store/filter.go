package store

import "fluxtodo/internal/service"

// Filters narrow and order the filtered task view. They are applied on read
// and are also forwarded on Fetch.
type Filters struct {
	ListID    string
	Completed *bool
	SortBy    service.SortField
	SortOrder service.SortOrder
}

// DefaultFilters shows every task, newest first.
func DefaultFilters() Filters {
	return Filters{SortBy: service.SortCreatedAt, SortOrder: service.SortDesc}
}

func (f Filters) clone() Filters {
	if f.Completed != nil {
		v := *f.Completed
		f.Completed = &v
	}
	return f
}

func (f Filters) normalized() Filters {
	q := service.TaskQuery{SortBy: f.SortBy, SortOrder: f.SortOrder}.Normalize()
	f.SortBy, f.SortOrder = q.SortBy, q.SortOrder
	return f
}

// SetSearch sets the search term. It does not fetch.
func (s *TaskStore) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = q
}

// SetFilters replaces the filters. It does not fetch.
func (s *TaskStore) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f.clone().normalized()
}

// ClearFilters resets the search term and filters.
func (s *TaskStore) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = ""
	s.filters = DefaultFilters()
}

// Filtered returns the cached tasks that match the search and filters,
// sorted by the filter's field. Tasks with equal keys keep collection order.
func (s *TaskStore) Filtered() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := service.TaskQuery{
		Search:    s.search,
		ListID:    s.filters.ListID,
		Completed: s.filters.Completed,
	}
	var out []service.Task
	for _, t := range s.tasks {
		if service.MatchTask(t, q) {
			out = append(out, cloneTask(t))
		}
	}
	service.SortTasks(out, s.filters.SortBy, s.filters.SortOrder)
	return out
}
