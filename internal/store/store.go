// Package store implements the generic client-side resource store: a
// server-authoritative snapshot plus CRUD and one optimistic toggle.
// Concurrent updates against the same id are not serialized; the last
// response to land wins. That weak-consistency policy matches the
// service, which carries no versioning or ETag mechanism.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/easygomonitor/console/internal/apierr"
	"github.com/easygomonitor/console/internal/metrics"
)

// Op identifies a completed mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpToggle Op = "toggle"
)

// Mutation is delivered to subscribers after each mutation attempt
// finishes, success or not.
type Mutation struct {
	Op  Op
	ID  string
	Err error
}

// Ops binds a store to one resource collection: the endpoint calls plus
// the accessors the store needs to keep its snapshot coherent. List has
// any owner filter baked in by the caller.
type Ops[T, C, U any] struct {
	List       func(ctx context.Context) ([]T, error)
	Create     func(ctx context.Context, in C) (T, error)
	Update     func(ctx context.Context, id string, in U) (T, error)
	Remove     func(ctx context.Context, id string) error
	SetEnabled func(ctx context.Context, item T, enabled bool) error

	Key         func(T) string
	Enabled     func(T) bool
	WithEnabled func(T, bool) T
}

// Dependencies allow overrides for logging and telemetry.
type Dependencies struct {
	Logger  *log.Logger
	Metrics metrics.ToggleRecorder
}

// Store owns one resource collection. All external access goes through
// its methods; the snapshot is never handed out by reference.
type Store[T, C, U any] struct {
	ops     Ops[T, C, U]
	logger  *log.Logger
	metrics metrics.ToggleRecorder

	mu    sync.Mutex
	items []T
	subs  []func(Mutation)
}

func New[T, C, U any](ops Ops[T, C, U], deps Dependencies) (*Store[T, C, U], error) {
	if ops.List == nil || ops.Key == nil {
		return nil, fmt.Errorf("list operation and key accessor are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NoopToggleRecorder{}
	}
	return &Store[T, C, U]{
		ops:     ops,
		logger:  logger,
		metrics: recorder,
	}, nil
}

// SubscribeMutations registers a callback fired after every mutation
// attempt completes. Callbacks run synchronously on the mutating
// goroutine and must not call back into the store.
func (s *Store[T, C, U]) SubscribeMutations(fn func(Mutation)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current items in server order.
func (s *Store[T, C, U]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Refresh fetches the collection and replaces the snapshot atomically.
// A failed fetch leaves the previous snapshot untouched.
func (s *Store[T, C, U]) Refresh(ctx context.Context) ([]T, error) {
	items, err := s.ops.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return s.Snapshot(), nil
}

// Create submits a construction payload and appends the server's item,
// carrying its assigned id. A rejection leaves the snapshot unchanged.
func (s *Store[T, C, U]) Create(ctx context.Context, in C) (T, error) {
	item, err := s.ops.Create(ctx, in)
	if err != nil {
		var zero T
		s.notify(Mutation{Op: OpCreate, Err: err})
		return zero, err
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.notify(Mutation{Op: OpCreate, ID: s.ops.Key(item)})
	return item, nil
}

// Update submits an update and replaces the matching local item with
// the server's version. When the item has vanished server-side it is
// dropped locally and the stale condition is reported to the caller.
func (s *Store[T, C, U]) Update(ctx context.Context, id string, in U) (T, error) {
	item, err := s.ops.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, apierr.Stale) {
			s.drop(id)
		}
		var zero T
		s.notify(Mutation{Op: OpUpdate, ID: id, Err: err})
		return zero, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.ops.Key(s.items[i]) == id {
			s.items[i] = item
			break
		}
	}
	s.mu.Unlock()

	s.notify(Mutation{Op: OpUpdate, ID: id})
	return item, nil
}

// Remove deletes the item server-side first and drops it locally only
// after confirmation; deletion cascades into dependent views, so there
// is no optimistic removal. A stale 404 still drops the local entry.
func (s *Store[T, C, U]) Remove(ctx context.Context, id string) error {
	err := s.ops.Remove(ctx, id)
	if err != nil && !errors.Is(err, apierr.Stale) {
		s.notify(Mutation{Op: OpRemove, ID: id, Err: err})
		return err
	}

	s.drop(id)
	s.notify(Mutation{Op: OpRemove, ID: id, Err: err})
	return err
}

// SetEnabled flips the local flag immediately for responsiveness, then
// confirms with the server. On failure the item is restored to the
// value captured before this call, not to whatever it holds by then, so
// an interleaved second toggle cannot compound the damage.
func (s *Store[T, C, U]) SetEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	idx := -1
	for i := range s.items {
		if s.ops.Key(s.items[i]) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		err := apierr.New(apierr.KindStale, fmt.Sprintf("no local item with id %s", id))
		s.notify(Mutation{Op: OpToggle, ID: id, Err: err})
		return err
	}
	prior := s.ops.Enabled(s.items[idx])
	pending := s.items[idx]
	s.items[idx] = s.ops.WithEnabled(pending, enabled)
	s.mu.Unlock()

	err := s.ops.SetEnabled(ctx, pending, enabled)
	if err != nil {
		s.restoreEnabled(id, prior)
		s.metrics.IncToggleRollbacks()
		s.logger.Printf("toggle %s rolled back: %v", id, err)
	}

	s.notify(Mutation{Op: OpToggle, ID: id, Err: err})
	return err
}

func (s *Store[T, C, U]) drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, item := range s.items {
		if s.ops.Key(item) != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

func (s *Store[T, C, U]) restoreEnabled(id string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.ops.Key(s.items[i]) == id {
			s.items[i] = s.ops.WithEnabled(s.items[i], enabled)
			return
		}
	}
}

func (s *Store[T, C, U]) notify(m Mutation) {
	s.mu.Lock()
	subs := append(([]func(Mutation))(nil), s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(m)
	}
}
