package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
	"fluxtodo/internal/testutil"
)

func threeLists() *testutil.FakeService {
	fake := testutil.NewFakeService()
	fake.AddList("a", "Alpha")
	fake.AddList("b", "Bravo")
	fake.AddList("c", "Charlie")
	return fake
}

func TestListStore_Fetch_ReplacesCollectionWhenServiceSucceeds(t *testing.T) {
	t.Parallel()

	sess := loadedSession(t, threeLists())

	snap := sess.Lists.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, listIDs(snap.Lists))
	assert.Equal(t, 3, snap.Page.Total)
	assert.False(t, snap.Loading, "loading flag should be cleared")
	assert.NoError(t, snap.Err)
}

func TestListStore_Fetch_KeepsCollectionWhenServiceFails(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	before := sess.Lists.Snapshot().Lists

	fake.ListListsErr = service.Internal("database unavailable")
	err := sess.Lists.Fetch(context.Background(), 2)
	require.Error(t, err)

	snap := sess.Lists.Snapshot()
	if diff := cmp.Diff(before, snap.Lists); diff != "" {
		t.Errorf("lists changed after failed fetch (-before +after):\n%s", diff)
	}
	assert.False(t, snap.Loading)
	require.Error(t, snap.Err)
	assert.Equal(t, "database unavailable", snap.Err.Error())
}

func TestListStore_Create_ReplacesProvisionalInPlaceWhenServiceSucceeds(t *testing.T) {
	t.Parallel()

	sess := loadedSession(t, threeLists())

	created, err := sess.Lists.Create(context.Background(), "Delta")
	require.NoError(t, err)
	assert.False(t, store.IsPending(created.ID), "server id should not be provisional")

	snap := sess.Lists.Snapshot()
	assert.Equal(t, []string{created.ID, "a", "b", "c"}, listIDs(snap.Lists))
	assert.Equal(t, "Delta", snap.Lists[0].Title)
	assert.Equal(t, testutil.DefaultOwner, snap.Lists[0].OwnerID)
	assert.False(t, snap.Creating)
}

func TestListStore_Create_ShowsProvisionalWhileInFlight(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	g := newGate("CreateList")
	fake.Gate = g.hook
	sess := loadedSession(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Lists.Create(context.Background(), "Delta")
		done <- err
	}()
	g.wait(t)

	snap := sess.Lists.Snapshot()
	require.Len(t, snap.Lists, 4)
	assert.True(t, store.IsPending(snap.Lists[0].ID), "front entry should be provisional")
	assert.Equal(t, store.PendingOwner, snap.Lists[0].OwnerID)
	assert.True(t, snap.Creating)

	g.open()
	require.NoError(t, <-done)
	assert.False(t, store.IsPending(sess.Lists.Snapshot().Lists[0].ID))
}

func TestListStore_Create_RemovesProvisionalWhenServiceFails(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	fake.CreateListErr = service.Conflict("You have reached the maximum number of lists")

	_, err := sess.Lists.Create(context.Background(), "Delta")
	require.Error(t, err)

	snap := sess.Lists.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, listIDs(snap.Lists))
	assert.Equal(t, "You have reached the maximum number of lists", snap.Err.Error())

	var opErr *store.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, service.CodeConflict, service.CodeOf(opErr))
}

func TestListStore_Create_RejectsBlankTitleWithoutCallingService(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	callsBefore := len(fake.Calls())

	_, err := sess.Lists.Create(context.Background(), "   ")

	var vErr *store.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
	assert.Len(t, fake.Calls(), callsBefore, "no remote call expected")
	assert.Len(t, sess.Lists.Snapshot().Lists, 3)
}

func TestListStore_Update_RevertsTitleAndUpdatedAtWhenServiceFails(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	before, ok := sess.Lists.Get("b")
	require.True(t, ok)

	fake.UpdateListErr = errors.New("connection reset")
	err := sess.Lists.Update(context.Background(), "b", "Renamed")
	require.Error(t, err)

	after, ok := sess.Lists.Get("b")
	require.True(t, ok)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("list not restored (-before +after):\n%s", diff)
	}
	assert.Equal(t, "connection reset", sess.Lists.Err().Error())
	assert.Empty(t, sess.Lists.Snapshot().Updating)
}

func TestListStore_Update_AppliesTitleWhenServiceSucceeds(t *testing.T) {
	t.Parallel()

	sess := loadedSession(t, threeLists())

	require.NoError(t, sess.Lists.Update(context.Background(), "b", "Renamed"))

	got, _ := sess.Lists.Get("b")
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestListStore_Delete_RestoresOriginalIndexWhenServiceFails(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	before := sess.Lists.Snapshot().Lists

	fake.DeleteListErr = service.Internal("")
	err := sess.Lists.Delete(context.Background(), "b")
	require.Error(t, err)

	snap := sess.Lists.Snapshot()
	if diff := cmp.Diff(before, snap.Lists); diff != "" {
		t.Errorf("lists not restored (-before +after):\n%s", diff)
	}
	assert.Equal(t, "Internal server error", snap.Err.Error())
	assert.Empty(t, snap.Deleting)
}

func TestListStore_Delete_ClearsSelectionAndCountsWhenServiceSucceeds(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	fake.AddTask("b", "t1", "one", false)
	sess := loadedSession(t, fake)
	sess.Lists.Select("b")

	require.NoError(t, sess.Lists.Delete(context.Background(), "b"))

	snap := sess.Lists.Snapshot()
	assert.Equal(t, []string{"a", "c"}, listIDs(snap.Lists))
	assert.Empty(t, snap.SelectedID)
	assert.NotContains(t, snap.Counts, "b")
	_, ok := sess.Lists.Selected()
	assert.False(t, ok)
}

func TestListStore_Delete_RestoresSelectionWhenServiceFails(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	sess.Lists.Select("b")

	fake.DeleteListErr = service.NotFound("List")
	require.Error(t, sess.Lists.Delete(context.Background(), "b"))

	sel, ok := sess.Lists.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)
}

func TestListStore_Delete_RejectsSecondCallWhenFirstInFlight(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	g := newGate("DeleteList")
	fake.Gate = g.hook
	sess := loadedSession(t, fake)

	done := make(chan error, 1)
	go func() { done <- sess.Lists.Delete(context.Background(), "b") }()
	g.wait(t)

	assert.True(t, sess.Lists.Snapshot().Deleting["b"])
	err := sess.Lists.Delete(context.Background(), "b")
	assert.ErrorIs(t, err, store.ErrNotFound, "entity is already gone locally")

	err = sess.Lists.Update(context.Background(), "a", "still free")
	assert.NoError(t, err, "other entities are not blocked")

	g.open()
	require.NoError(t, <-done)
}

func TestListStore_Update_RejectsBusyEntity(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	g := newGate("UpdateList")
	fake.Gate = g.hook
	sess := loadedSession(t, fake)

	done := make(chan error, 1)
	go func() { done <- sess.Lists.Update(context.Background(), "a", "First") }()
	g.wait(t)

	err := sess.Lists.Delete(context.Background(), "a")
	require.ErrorIs(t, err, store.ErrBusy)
	assert.Len(t, sess.Lists.Snapshot().Lists, 3, "rejected delete must not mutate")

	g.open()
	require.NoError(t, <-done)
	got, _ := sess.Lists.Get("a")
	assert.Equal(t, "First", got.Title)
}

func TestListStore_RejectsMutationsWhenNotAuthenticated(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	var who auth.Session
	sess := store.NewSession(fake, store.WithIdentity(&who))
	t.Cleanup(sess.Close)

	_, err := sess.Lists.Create(context.Background(), "Delta")
	require.ErrorIs(t, err, store.ErrNotAuthenticated)
	snap := sess.Lists.Snapshot()
	assert.True(t, snap.Unauthenticated)
	assert.Empty(t, snap.Lists)
	assert.Empty(t, fake.Calls())

	who.SignIn("user-1")
	require.NoError(t, sess.Lists.Fetch(context.Background(), 1))
	assert.False(t, sess.Lists.Snapshot().Unauthenticated)
}

func TestListStore_MarksUnauthenticatedWhenServiceReturns401(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	fake.UpdateListErr = service.Unauthorized()

	require.Error(t, sess.Lists.Update(context.Background(), "a", "x"))
	assert.True(t, sess.Lists.Snapshot().Unauthenticated)
}

func TestListStore_RejectsPendingEntity(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	g := newGate("CreateList")
	fake.Gate = g.hook
	sess := loadedSession(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Lists.Create(context.Background(), "Delta")
		done <- err
	}()
	g.wait(t)

	tempID := sess.Lists.Snapshot().Lists[0].ID
	require.ErrorIs(t, sess.Lists.Delete(context.Background(), tempID), store.ErrPending)

	g.open()
	require.NoError(t, <-done)
}

func TestListStore_Transition_IsNoOpWhenFlagUnchanged(t *testing.T) {
	t.Parallel()

	ls := store.NewListStore(testutil.NewFakeService())
	ls.SetCounts("L1", store.TaskCount{Total: 3, Completed: 1})

	ls.Transition("L1", true, true)
	ls.Transition("L1", false, false)

	assert.Equal(t, store.TaskCount{Total: 3, Completed: 1}, ls.Counts("L1"))
}

func TestListStore_Counts_NeverGoNegative(t *testing.T) {
	t.Parallel()

	ls := store.NewListStore(testutil.NewFakeService())
	ls.Decrement("L1", true)
	ls.Transition("L1", true, false)
	ls.Increment("L1", false)
	ls.Transition("L1", false, true)
	ls.Transition("L1", false, true)
	ls.SetCounts("L2", store.TaskCount{Total: 1, Completed: 5})

	snap := ls.Snapshot()
	requireCountInvariant(t, snap.Counts)
	assert.Equal(t, store.TaskCount{Total: 1, Completed: 1}, snap.Counts["L1"])
	assert.Equal(t, store.TaskCount{Total: 1, Completed: 1}, snap.Counts["L2"])
}

func TestListStore_InitializeFromSnapshot_TalliesTasks(t *testing.T) {
	t.Parallel()

	ls := store.NewListStore(testutil.NewFakeService())
	ls.SetCounts("other", store.TaskCount{Total: 2})
	ls.InitializeFromSnapshot([]service.ListWithTasks{
		{List: service.List{ID: "L1"}, Tasks: []service.Task{{ID: "1", Completed: true}, {ID: "2"}}},
		{List: service.List{ID: "L2"}},
	})

	want := map[string]store.TaskCount{
		"L1":    {Total: 2, Completed: 1},
		"L2":    {},
		"other": {Total: 2},
	}
	if diff := cmp.Diff(want, ls.Snapshot().Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestListStore_Snapshot_ReturnsCopies(t *testing.T) {
	t.Parallel()

	sess := loadedSession(t, threeLists())
	snap := sess.Lists.Snapshot()
	snap.Lists[0].Title = "mutated"
	snap.Counts["a"] = store.TaskCount{Total: 99}

	got, _ := sess.Lists.Get("a")
	assert.Equal(t, "Alpha", got.Title)
	assert.Equal(t, store.TaskCount{}, sess.Lists.Counts("a"))
}

func TestListStore_ClearError_ResetsErrorField(t *testing.T) {
	t.Parallel()

	fake := threeLists()
	sess := loadedSession(t, fake)
	fake.DeleteListErr = errors.New("boom")
	require.Error(t, sess.Lists.Delete(context.Background(), "a"))
	require.Error(t, sess.Lists.Err())

	sess.Lists.ClearError()
	assert.NoError(t, sess.Lists.Err())
}
