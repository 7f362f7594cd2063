package appstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"wrapsync/internal/events"
	"wrapsync/internal/infra/log"
)

// Persister saves every committed snapshot.
type Persister interface {
	Save(Snapshot) error
}

// Refresher is re-run after commits while the settings are not loaded.
type Refresher func(ctx context.Context, state AppState) AppState

type StoreOption func(*Store)

func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persist = p }
}

func WithRefresher(r Refresher) StoreOption {
	return func(s *Store) { s.refresh = r }
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store owns the state. Events are applied one at a time, each commit is
// persisted and then published to subscribers as a read-only copy.
type Store struct {
	reducer *Reducer
	persist Persister
	refresh Refresher
	now     func() time.Time
	log     *zap.Logger

	applyMu sync.Mutex

	mu     sync.RWMutex
	snap   Snapshot
	subs   map[uint64]chan Snapshot
	nextID uint64
}

func NewStore(reducer *Reducer, initial Snapshot, opts ...StoreOption) *Store {
	s := &Store{
		reducer: reducer,
		now:     time.Now,
		log:     log.Named("store"),
		snap:    initial.Clone(),
		subs:    make(map[uint64]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the last committed snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// State is Snapshot().State.
func (s *Store) State() AppState {
	return s.Snapshot().State
}

// SetIdentity records the display identity; it is committed with the next snapshot.
func (s *Store) SetIdentity(name string) {
	s.mu.Lock()
	s.snap.Identity = name
	s.mu.Unlock()
	s.log.Info("identified", zap.String("identity", name))
}

// Init runs fn over the current snapshot and commits the result.
func (s *Store) Init(ctx context.Context, fn func(ctx context.Context, cached Snapshot) Snapshot) Snapshot {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	return s.commit(fn(ctx, s.Snapshot()))
}

// Run applies events from in until ctx is done or in is closed.
func (s *Store) Run(ctx context.Context, in <-chan events.ChainEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			s.Apply(ctx, ev)
		}
	}
}

// Apply reduces a single event and commits the result. Callers are
// serialized: the next event is not reduced before this one is committed.
func (s *Store) Apply(ctx context.Context, ev events.ChainEvent) Snapshot {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	cur := s.Snapshot()
	next := cur
	next.State = s.reducer.Reduce(ctx, cur.State, ev)

	if s.refresh != nil && (!HasLoadedTokenSettings(&next.State) || !HasLoadedERC20Settings(&next.State)) {
		next.State = s.refresh(ctx, next.State)
	}
	if t, ok := ev.(events.Transfer); ok && t.BlockNumber > next.LastBlock {
		next.LastBlock = t.BlockNumber
	}
	return s.commit(next)
}

func (s *Store) commit(next Snapshot) Snapshot {
	next.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	next.Identity = s.snap.Identity
	s.snap = next.Clone()
	subs := make([]chan Snapshot, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(next); err != nil {
			s.log.Error("failed to persist snapshot", zap.Error(err))
		}
	}

	for _, ch := range subs {
		publish(ch, next.Clone())
	}
	return next
}

// publish keeps only the latest snapshot in a subscriber's buffer.
func publish(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel that always holds the latest committed
// snapshot, plus a function to stop receiving. Slow readers skip snapshots.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
