// Package auth exposes the "current user id or none" fact the stores and
// backends depend on.
package auth

import (
	"context"
	"strings"
	"sync"
)

// Identity reports the signed-in user.
type Identity interface {
	// CurrentUser returns the user id and true, or "" and false when nobody
	// is signed in. Implementations must be cheap; stores call it before
	// every mutation.
	CurrentUser(ctx context.Context) (string, bool)
}

// Func adapts a function to Identity.
type Func func(ctx context.Context) (string, bool)

// CurrentUser implements Identity.
func (f Func) CurrentUser(ctx context.Context) (string, bool) { return f(ctx) }

// Static returns an Identity that always reports userID.
// An empty or blank userID means nobody is signed in.
func Static(userID string) Identity {
	userID = strings.TrimSpace(userID)
	return Func(func(context.Context) (string, bool) {
		return userID, userID != ""
	})
}

// Anonymous is an Identity with nobody signed in.
var Anonymous Identity = Static("")

// Session is a mutable Identity: SignIn and SignOut switch the reported user.
// The zero value is signed out.
type Session struct {
	mu     sync.RWMutex
	userID string
}

// SignIn records userID as the current user.
func (s *Session) SignIn(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = strings.TrimSpace(userID)
}

// SignOut clears the current user.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
}

// CurrentUser implements Identity.
func (s *Session) CurrentUser(context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

type ctxKey struct{}

// WithUser returns a context carrying userID. Used by the HTTP API to scope
// a request to its caller.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext is an Identity that reads the user placed by WithUser.
var FromContext Identity = Func(func(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id, id != ""
})
