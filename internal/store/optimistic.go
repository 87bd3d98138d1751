package store

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"fluxtodo/internal/auth"
	"fluxtodo/internal/service"
)

// PendingPrefix marks locally generated ids of records not yet confirmed by
// the server.
const PendingPrefix = "temp-"

// PendingOwner is the owner placed on provisional lists.
const PendingOwner = "temp"

// IsPending reports whether id is a provisional id.
func IsPending(id string) bool {
	return strings.HasPrefix(id, PendingPrefix)
}

type tempIDs struct {
	n atomic.Uint64
}

func (g *tempIDs) next() string {
	return PendingPrefix + strconv.FormatUint(g.n.Add(1), 10)
}

// Option configures a store or session.
type Option func(*options)

type options struct {
	identity  auth.Identity
	logger    *slog.Logger
	now       func() time.Time
	pageSize  int
	bulkLimit int
	counts    CountSink
}

func defaultOptions() options {
	return options{
		identity:  auth.Anonymous,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		pageSize:  service.DefaultPageSize,
		bulkLimit: 8,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithIdentity sets the identity consulted before every operation.
func WithIdentity(id auth.Identity) Option {
	return func(o *options) {
		if id != nil {
			o.identity = id
		}
	}
}

// WithLogger sets the logger used for revert diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPageSize sets the page size requested by Fetch.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithBulkLimit bounds how many remote calls a bulk operation keeps in flight.
func WithBulkLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bulkLimit = n
		}
	}
}

// WithCountSink sets where a TaskStore sends task-count effects.
func WithCountSink(s CountSink) Option {
	return func(o *options) {
		o.counts = s
	}
}

// opState is the bookkeeping shared by both stores. Every field is guarded
// by the owning store's mutex.
type opState struct {
	options
	ids tempIDs

	closed          bool
	loading         int
	creating        int
	updating        map[string]bool
	deleting        map[string]bool
	err             error
	unauthenticated bool
}

func newOpState(o options) opState {
	return opState{
		options:  o,
		updating: make(map[string]bool),
		deleting: make(map[string]bool),
	}
}

// begin runs the checks every operation makes before touching state and
// clears the previous error.
func (s *opState) begin(ctx context.Context, op string) error {
	if s.closed {
		return s.reject(op, ErrClosed)
	}
	if _, ok := s.identity.CurrentUser(ctx); !ok {
		s.unauthenticated = true
		return s.reject(op, ErrNotAuthenticated)
	}
	s.unauthenticated = false
	s.err = nil
	return nil
}

// reject records a failure that happened before any optimistic mutation.
func (s *opState) reject(op string, err error) error {
	e := &OpError{Op: op, Message: err.Error(), Err: err}
	s.err = e
	return e
}

// fail records a remote failure after the caller has reverted.
func (s *opState) fail(op, fallback string, err error) error {
	e := newOpError(op, fallback, err)
	if s.closed {
		return e
	}
	s.err = e
	if service.IsUnauthorized(err) {
		s.unauthenticated = true
	}
	s.logger.Debug("reverted optimistic change", "op", op, "err", err)
	return e
}

// failBatch records the aggregate failure of a bulk operation. The message
// is taken from the first failure; Err joins all of them.
func (s *opState) failBatch(op, fallback string, errs []error) error {
	joined := errors.Join(errs...)
	e := &OpError{Op: op, Message: service.Message(errs[0], fallback), Err: joined}
	if s.closed {
		return e
	}
	s.err = e
	if service.IsUnauthorized(joined) {
		s.unauthenticated = true
	}
	s.logger.Debug("reverted batch", "op", op, "failed", len(errs), "err", joined)
	return e
}

func (s *opState) busy(id string) bool {
	return s.updating[id] || s.deleting[id]
}

// claim checks id can be mutated: it is known, confirmed and idle.
func (s *opState) claim(op, id string, found bool) error {
	switch {
	case !found:
		return s.reject(op, ErrNotFound)
	case IsPending(id):
		return s.reject(op, ErrPending)
	case s.busy(id):
		return s.reject(op, ErrBusy)
	}
	return nil
}

func (s *opState) reset() {
	s.loading = 0
	s.creating = 0
	s.updating = make(map[string]bool)
	s.deleting = make(map[string]bool)
	s.err = nil
	s.unauthenticated = false
}

// Status is the in-flight and error state common to both store snapshots.
type Status struct {
	Loading         bool
	Creating        bool
	Updating        map[string]bool
	Deleting        map[string]bool
	Err             error
	Unauthenticated bool
}

func (s *opState) status() Status {
	return Status{
		Loading:         s.loading > 0,
		Creating:        s.creating > 0,
		Updating:        maps.Clone(s.updating),
		Deleting:        maps.Clone(s.deleting),
		Err:             s.err,
		Unauthenticated: s.unauthenticated,
	}
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, it := range items {
		if key(it) == id {
			return i
		}
	}
	return -1
}

func listID(l service.List) string { return l.ID }
func taskID(t service.Task) string { return t.ID }
