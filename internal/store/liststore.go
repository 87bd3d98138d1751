package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"fluxtodo/internal/service"
)

const (
	opFetchLists = "fetch lists"
	opCreateList = "create list"
	opUpdateList = "update list"
	opDeleteList = "delete list"
)

// ListStore caches the user's lists and the per-list task counts.
type ListStore struct {
	svc service.Service

	mu sync.Mutex
	opState
	lists      []service.List
	selectedID string
	taskCounts map[string]TaskCount
	page       service.PageMeta
	search     string
	sortBy     service.SortField
	sortOrder  service.SortOrder
}

// Ensure ListStore receives task-count effects.
var _ CountSink = (*ListStore)(nil)

// NewListStore creates an empty ListStore backed by svc.
func NewListStore(svc service.Service, opts ...Option) *ListStore {
	return newListStore(svc, buildOptions(opts))
}

func newListStore(svc service.Service, o options) *ListStore {
	return &ListStore{
		svc:        svc,
		opState:    newOpState(o),
		taskCounts: make(map[string]TaskCount),
		page:       service.PageMeta{Page: 1, TotalPages: 1},
		sortBy:     service.SortCreatedAt,
		sortOrder:  service.SortDesc,
	}
}

// ListSnapshot is a copy of the ListStore state.
type ListSnapshot struct {
	Status
	Lists      []service.List
	SelectedID string
	Counts     map[string]TaskCount
	Page       service.PageMeta
	Search     string
	SortBy     service.SortField
	SortOrder  service.SortOrder
}

// Snapshot returns a copy of the current state.
func (s *ListStore) Snapshot() ListSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ListStore) snapshotLocked() ListSnapshot {
	return ListSnapshot{
		Status:     s.status(),
		Lists:      slices.Clone(s.lists),
		SelectedID: s.selectedID,
		Counts:     maps.Clone(s.taskCounts),
		Page:       s.page,
		Search:     s.search,
		SortBy:     s.sortBy,
		SortOrder:  s.sortOrder,
	}
}

// Fetch replaces the collection with the given server page. On failure the
// collection is left as it was and the error is recorded.
func (s *ListStore) Fetch(ctx context.Context, page int) error {
	s.mu.Lock()
	if err := s.begin(ctx, opFetchLists); err != nil {
		s.mu.Unlock()
		return err
	}
	q := service.ListQuery{
		Page:      page,
		Limit:     s.pageSize,
		Search:    s.search,
		SortBy:    s.sortBy,
		SortOrder: s.sortOrder,
	}
	s.loading++
	s.mu.Unlock()

	res, err := s.svc.ListLists(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return s.fail(opFetchLists, "Failed to fetch lists", err)
	}
	if s.closed {
		return nil
	}
	s.lists = slices.Clone(res.Items)
	s.page = res.Meta
	return nil
}

// Create inserts a provisional list at the front, then replaces it in place
// with the server's record. On failure the provisional list is removed.
func (s *ListStore) Create(ctx context.Context, title string) (service.List, error) {
	s.mu.Lock()
	if err := s.begin(ctx, opCreateList); err != nil {
		s.mu.Unlock()
		return service.List{}, err
	}
	if strings.TrimSpace(title) == "" {
		err := s.reject(opCreateList, &ValidationError{Field: "title", Message: "title is required"})
		s.mu.Unlock()
		return service.List{}, err
	}
	tempID := s.ids.next()
	now := s.now()
	s.lists = slices.Insert(s.lists, 0, service.List{
		ID:        tempID,
		Title:     title,
		OwnerID:   PendingOwner,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.creating++
	s.mu.Unlock()

	created, err := s.svc.CreateList(ctx, service.CreateListRequest{Title: title})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating--
	i := indexOf(s.lists, tempID, listID)
	if err != nil {
		if i >= 0 {
			s.lists = slices.Delete(s.lists, i, i+1)
		}
		return service.List{}, s.fail(opCreateList, "Failed to create list", err)
	}
	if i >= 0 {
		s.lists[i] = created
	}
	return created, nil
}

// Update renames a list in place immediately and reverts the title and
// updatedAt if the server rejects the change.
func (s *ListStore) Update(ctx context.Context, id, title string) error {
	s.mu.Lock()
	if err := s.begin(ctx, opUpdateList); err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(s.lists, id, listID)
	if err := s.claim(opUpdateList, id, i >= 0); err != nil {
		s.mu.Unlock()
		return err
	}
	if strings.TrimSpace(title) == "" {
		err := s.reject(opUpdateList, &ValidationError{Field: "title", Message: "title is required"})
		s.mu.Unlock()
		return err
	}
	prev := s.lists[i]
	s.lists[i].Title = title
	s.lists[i].UpdatedAt = s.now()
	s.updating[id] = true
	s.mu.Unlock()

	_, err := s.svc.UpdateList(ctx, id, service.UpdateListRequest{Title: title})

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.updating, id)
	if err == nil {
		return nil
	}
	if j := indexOf(s.lists, id, listID); j >= 0 {
		s.lists[j].Title = prev.Title
		s.lists[j].UpdatedAt = prev.UpdatedAt
	}
	return s.fail(opUpdateList, "Failed to update list", err)
}

// Delete removes a list immediately and clears the selection if it pointed
// at it. On failure the list is reinserted at its original index.
func (s *ListStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.begin(ctx, opDeleteList); err != nil {
		s.mu.Unlock()
		return err
	}
	idx := indexOf(s.lists, id, listID)
	if err := s.claim(opDeleteList, id, idx >= 0); err != nil {
		s.mu.Unlock()
		return err
	}
	prev := s.lists[idx]
	wasSelected := s.selectedID == id
	s.lists = slices.Delete(s.lists, idx, idx+1)
	if wasSelected {
		s.selectedID = ""
	}
	s.deleting[id] = true
	s.mu.Unlock()

	err := s.svc.DeleteList(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleting, id)
	if err == nil {
		delete(s.taskCounts, id)
		return nil
	}
	if !s.closed && indexOf(s.lists, id, listID) < 0 {
		at := min(idx, len(s.lists))
		s.lists = slices.Insert(s.lists, at, prev)
	}
	if wasSelected && s.selectedID == "" {
		s.selectedID = id
	}
	return s.fail(opDeleteList, "Failed to delete list", err)
}

// Select marks id as the current list. An empty id clears the selection.
func (s *ListStore) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
}

// SetSearch sets the search term used by the next Fetch.
func (s *ListStore) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = q
}

// SetSort sets the ordering requested by the next Fetch.
func (s *ListStore) SetSort(by service.SortField, order service.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortBy, s.sortOrder = by, order
}

// ClearError clears the error field.
func (s *ListStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Err returns the error recorded by the last failed operation.
func (s *ListStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Get returns the list with id.
func (s *ListStore) Get(id string) (service.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.lists, id, listID); i >= 0 {
		return s.lists[i], true
	}
	return service.List{}, false
}

// Selected returns the selected list, if one is selected and present.
func (s *ListStore) Selected() (service.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return service.List{}, false
	}
	if i := indexOf(s.lists, s.selectedID, listID); i >= 0 {
		return s.lists[i], true
	}
	return service.List{}, false
}

// Counts returns the task counts for listID, zero when unknown.
func (s *ListStore) Counts(listID string) TaskCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskCounts[listID]
}

// Increment records a new task in listID.
func (s *ListStore) Increment(listID string, completed bool) {
	s.ApplyEffects(increment(listID, completed))
}

// Decrement records a removed task from listID. Counts never go below zero.
func (s *ListStore) Decrement(listID string, completed bool) {
	s.ApplyEffects(decrement(listID, completed))
}

// Transition records a completion flip. It does nothing when was == is.
func (s *ListStore) Transition(listID string, was, is bool) {
	s.ApplyEffects(transition(listID, was, is))
}

// SetCounts overwrites the counts for listID, clamped to the invariant.
func (s *ListStore) SetCounts(listID string, c TaskCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskCounts[listID] = c.clamp()
}

// InitializeFromSnapshot seeds counts from server lists with their tasks.
// Lists absent from the snapshot keep their counts.
func (s *ListStore) InitializeFromSnapshot(lists []service.ListWithTasks) {
	counts := CountsFromSnapshot(lists)
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.taskCounts, counts)
}

// ApplyEffects implements CountSink.
func (s *ListStore) ApplyEffects(effects ...Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(effects)
}

func (s *ListStore) applyLocked(effects []Effect) {
	if s.closed {
		return
	}
	for _, e := range effects {
		applyEffect(s.taskCounts, e)
	}
}

// close drops all state and rejects further operations.
func (s *ListStore) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.closed = true
	s.lists = nil
	s.selectedID = ""
	s.taskCounts = make(map[string]TaskCount)
	s.page = service.PageMeta{Page: 1, TotalPages: 1}
}
