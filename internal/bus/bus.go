// Package bus implements the change bus: a registry of handlers fired
// whenever a slot changes, either by a write in this process (local) or by
// another process sharing the same data (external).
package bus

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Source says where a change came from. Handlers should treat every source
// the same way; the distinction exists for logging and tests.
type Source int

const (
	// SourceLocal is a write made through this process's store.
	SourceLocal Source = iota
	// SourceExternal is a write observed from another process.
	SourceExternal
)

// String returns "local" or "external".
func (s Source) String() string {
	if s == SourceExternal {
		return "external"
	}
	return "local"
}

// Event describes one change notification.
type Event struct {
	Source Source
	Key    string
	At     time.Time
}

// Handler receives change events.
type Handler func(Event)

// Bus is a process-wide change notification channel. It is safe for
// concurrent use.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]Handler
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) { b.log = l }
}

// New returns an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[uint64]Handler),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once and from
// inside the handler itself.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.handlers, s.id)
	})
}

// Subscribe registers h for every future event.
func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.handlers[b.next] = h
	return &Subscription{bus: b, id: b.next}
}

// Len returns the number of registered handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Notify fires a local change for key.
func (b *Bus) Notify(key string) {
	b.fire(Event{Source: SourceLocal, Key: key, At: b.now()})
}

// NotifyExternal fires a change for key observed from another process.
func (b *Bus) NotifyExternal(key string) {
	b.fire(Event{Source: SourceExternal, Key: key, At: b.now()})
}

// fire calls every handler registered at the time of the call, in
// subscription order, on the calling goroutine.
func (b *Bus) fire(ev Event) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = b.handlers[id]
	}
	b.mu.RUnlock()

	b.log.Debug("change", zap.Stringer("source", ev.Source), zap.String("key", ev.Key), zap.Int("handlers", len(handlers)))
	for _, h := range handlers {
		h(ev)
	}
}

// Bridge forwards every change reported by w to NotifyExternal until ctx is
// cancelled.
func (b *Bus) Bridge(ctx context.Context, w types.Watcher) error {
	return w.Watch(ctx, b.NotifyExternal)
}
