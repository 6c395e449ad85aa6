// Package observer keeps a view's cached snapshot of the record store in
// step with the change bus. Each Observer owns its own cache; several may
// be mounted at once and each reconciles independently on notification.
package observer

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Observer is a mounted view of the record store.
type Observer struct {
	store    *logstore.Store
	bus      *bus.Bus
	log      *zap.Logger
	onChange func([]types.Log)

	mu     sync.RWMutex
	logs   []types.Log
	sub    *bus.Subscription
	closed bool
}

// Option configures an Observer.
type Option func(*Observer)

// WithOnChange registers fn to run after every refresh with the new
// snapshot.
func WithOnChange(fn func([]types.Log)) Option {
	return func(o *Observer) { o.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Observer) { o.log = l }
}

// Open mounts an Observer: it loads the current collection and then
// subscribes to b. A nil bus means the store's own bus.
func Open(store *logstore.Store, b *bus.Bus, opts ...Option) *Observer {
	if b == nil {
		b = store.Bus()
	}
	o := &Observer{
		store: store,
		bus:   b,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.Refresh()

	o.mu.Lock()
	o.sub = b.Subscribe(o.handle)
	o.mu.Unlock()
	return o
}

func (o *Observer) handle(ev bus.Event) {
	if ev.Key != o.store.Key() {
		return
	}
	o.log.Debug("observer refresh", zap.Stringer("source", ev.Source))
	o.Refresh()
}

// Close unsubscribes. It is idempotent; no refresh starts after it returns.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.sub != nil {
		o.sub.Unsubscribe()
	}
}

// Logs returns a copy of the cached snapshot.
func (o *Observer) Logs() []types.Log {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.logs)
}

// Get looks up id in the cached snapshot.
func (o *Observer) Get(id string) (types.Log, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, l := range o.logs {
		if l.ID == id {
			return l, true
		}
	}
	return types.Log{}, false
}

// Refresh re-reads the store into the cache.
func (o *Observer) Refresh() {
	logs := o.store.List()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.logs = logs
	onChange := o.onChange
	o.mu.Unlock()

	if onChange != nil {
		onChange(slices.Clone(logs))
	}
}

// Create adds a log through the store and refreshes.
func (o *Observer) Create(f types.Fields) (types.Log, error) {
	l, err := o.store.Add(f)
	if err != nil {
		return types.Log{}, err
	}
	o.Refresh()
	return l, nil
}

// Update patches a log through the store and refreshes.
func (o *Observer) Update(id string, p types.Patch) error {
	if err := o.store.Update(id, p); err != nil {
		return err
	}
	o.Refresh()
	return nil
}

// Remove deletes a log through the store and refreshes.
func (o *Observer) Remove(id string) error {
	if err := o.store.Remove(id); err != nil {
		return err
	}
	o.Refresh()
	return nil
}

// Store returns the underlying record store.
func (o *Observer) Store() *logstore.Store { return o.store }
