package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/exitcode"
	"fluxtodo/internal/service"
	"fluxtodo/internal/store"
	"fluxtodo/internal/testutil"
)

func loadedSession(t *testing.T, svc *testutil.FakeService, opts ...store.Option) *store.Session {
	t.Helper()
	opts = append([]store.Option{store.WithIdentity(auth.Static(testutil.DefaultOwner))}, opts...)
	sess := store.NewSession(svc, opts...)
	t.Cleanup(sess.Close)
	if err := LoadSession(context.Background(), sess); err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func TestResolveList(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddList("l1", "Inbox")
	svc.AddList("l2", "b")
	svc.AddList("l3", "Groceries")
	svc.AddList("l4", "Gym")
	sess := loadedSession(t, svc)

	tests := []struct {
		name string
		want string
	}{
		{"", "l1"},
		{"INBOX", "l1"},
		{"b", "l2"},  // exact title beats the letter b
		{"c", "l3"},  // letter
		{"gr", "l3"}, // unique prefix
	}
	for _, tt := range tests {
		got, err := resolveList(sess, tt.name)
		if err != nil {
			t.Errorf("%q: %v", tt.name, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("%q: got %s, want %s", tt.name, got.ID, tt.want)
		}
	}

	if _, err := resolveList(sess, "g"); err == nil || err.Error() != "ambiguous list name: g" {
		t.Errorf("g: got %v", err)
	}
}

func TestLetterLists_FollowsCreationOrder(t *testing.T) {
	svc := testutil.NewFakeService()
	for i := range 3 {
		svc.AddList(fmt.Sprintf("l%d", i), fmt.Sprintf("List %d", i))
	}
	sess := loadedSession(t, svc)

	got := letterLists(sess)
	if len(got) != 3 {
		t.Fatalf("got %d lists", len(got))
	}
	for i, l := range got {
		if l.Letter != rune('a'+i) || l.List.ID != fmt.Sprintf("l%d", i) {
			t.Errorf("%d: got %c %s", i, l.Letter, l.List.ID)
		}
	}
	if letterOf(sess, "l2") != 'c' || letterOf(sess, "nope") != '?' {
		t.Error("letterOf mismatch")
	}
}

func TestFindTaskByNumber_PagesThroughList(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddList("l1", "Inbox")
	for i := 1; i <= 5; i++ {
		svc.AddTask("l1", fmt.Sprintf("t%d", i), fmt.Sprintf("Task %d", i), false)
	}
	sess := loadedSession(t, svc, store.WithPageSize(2))

	task, err := findTaskByNumber(context.Background(), sess, "l1", 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if task.ID != "t5" {
		t.Errorf("got %s, want t5", task.ID)
	}
	if _, found := sess.Tasks.Get("t5"); !found {
		t.Error("expected the found task to be cached for mutation")
	}
	if _, err := findTaskByNumber(context.Background(), sess, "l1", 6, 2); err == nil {
		t.Error("expected out of range")
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"not authenticated", &store.OpError{Message: "not authenticated", Err: store.ErrNotAuthenticated}, exitcode.AuthError, "error: not signed in (run: fluxtodo login)\n"},
		{"unauthorized", &store.OpError{Message: "Authentication required", Err: service.Unauthorized()}, exitcode.AuthError, "error: not signed in (run: fluxtodo login)\n"},
		{"validation", &store.OpError{Err: &store.ValidationError{Field: "title", Message: "title is required"}}, exitcode.UserError, "error: title is required\n"},
		{"busy", &store.OpError{Message: "operation already in progress", Err: store.ErrBusy}, exitcode.UserError, "error: operation already in progress\n"},
		{"rate limited", &store.OpError{Message: "Too many requests", Err: service.RateLimited()}, exitcode.BackendError, "error: too many requests, try again in a moment\n"},
		{"conflict", &store.OpError{Message: "exists", Err: service.Conflict("List exists")}, exitcode.UserError, "error: List exists\n"},
		{"internal", &store.OpError{Message: "x", Err: service.Internal("")}, exitcode.BackendError, "error: Internal server error\n"},
		{"transport", &store.OpError{Message: "dial tcp: refused", Err: errors.New("dial tcp: refused")}, exitcode.BackendError, "error: backend error: dial tcp: refused\n"},
		{"usage", errors.New("list not found: x"), exitcode.UserError, "error: list not found: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := report(&buf, tt.err); code != tt.code {
				t.Errorf("code = %d, want %d", code, tt.code)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
