package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
	"fluxtodo/internal/testutil"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, fake *testutil.FakeService, opts ...store.Option) *store.Session {
	t.Helper()
	base := []store.Option{
		store.WithIdentity(auth.Static(testutil.DefaultOwner)),
		store.WithClock(func() time.Time { return fixedNow }),
	}
	sess := store.NewSession(fake, append(base, opts...)...)
	t.Cleanup(sess.Close)
	return sess
}

// loadedSession returns a session whose stores hold every list and task of
// fake in insertion order.
func loadedSession(t *testing.T, fake *testutil.FakeService, opts ...store.Option) *store.Session {
	t.Helper()
	sess := newSession(t, fake, opts...)
	sess.Lists.SetSort(service.SortCreatedAt, service.SortAsc)
	sess.Tasks.SetFilters(store.Filters{SortBy: service.SortCreatedAt, SortOrder: service.SortAsc})
	require.NoError(t, sess.Load(context.Background()), "Load should succeed")
	return sess
}

func ids[T any](items []T, key func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, key(it))
	}
	return out
}

func listIDs(ls []service.List) []string { return ids(ls, func(l service.List) string { return l.ID }) }
func taskIDs(ts []service.Task) []string { return ids(ts, func(t service.Task) string { return t.ID }) }

// gate holds calls for one operation until released. A gate built with
// failingGate makes every held call return err once released.
type gate struct {
	op      string
	err     error
	entered chan string
	release chan struct{}
	once    sync.Once
}

func newGate(op string) *gate {
	return &gate{op: op, entered: make(chan string, 16), release: make(chan struct{})}
}

func failingGate(op string, err error) *gate {
	g := newGate(op)
	g.err = err
	return g
}

func (g *gate) hook(ctx context.Context, op, id string) error {
	if op != g.op {
		return nil
	}
	g.entered <- id
	select {
	case <-g.release:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) wait(t *testing.T) string {
	t.Helper()
	select {
	case id := <-g.entered:
		return id
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s to start", g.op)
		return ""
	}
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

func requireCountInvariant(t *testing.T, counts map[string]store.TaskCount) {
	t.Helper()
	for id, c := range counts {
		require.GreaterOrEqual(t, c.Total, 0, "total of %s", id)
		require.GreaterOrEqual(t, c.Completed, 0, "completed of %s", id)
		require.LessOrEqual(t, c.Completed, c.Total, "completed <= total for %s", id)
	}
}
