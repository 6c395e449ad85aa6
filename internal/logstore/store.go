// Package logstore implements the record store: the canonical collection of
// logs kept in a single slot. Every mutation reads the whole collection,
// changes it, persists it with one slot write and then fires the change bus.
package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Store owns the persisted log collection.
type Store struct {
	slots types.SlotStore
	bus   *bus.Bus
	key   string
	now   func() time.Time
	newID func() string
	log   *zap.Logger

	// mu serializes read-modify-write cycles within this process. Writers
	// in other processes are not excluded; the last whole-collection write
	// wins.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc replaces the identity generator.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithKey overrides the collection slot key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// New returns a Store persisting to slots and notifying b. A nil bus gets a
// private one.
func New(slots types.SlotStore, b *bus.Bus, opts ...Option) *Store {
	if b == nil {
		b = bus.New()
	}
	s := &Store{
		slots: slots,
		bus:   b,
		key:   types.LogsSlot,
		now:   time.Now,
		newID: NewID,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the change bus the store notifies.
func (s *Store) Bus() *bus.Bus { return s.bus }

// Key returns the collection slot key.
func (s *Store) Key() string { return s.key }

// NewID generates a new UUID v7 for log and attachment IDs.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// NextID returns a fresh identity from the store's generator.
func (s *Store) NextID() string { return s.newID() }

// Now returns the store clock formatted with types.TimeLayout.
func (s *Store) Now() string {
	return types.FormatTime(s.now())
}

// List returns every log, newest first. An absent or corrupt slot yields an
// empty list; List never fails.
func (s *Store) List() []types.Log {
	logs := s.read()
	types.SortLogs(logs)
	return logs
}

// Get finds a log by ID.
func (s *Store) Get(id string) (types.Log, bool) {
	for _, l := range s.List() {
		if l.ID == id {
			return l, true
		}
	}
	return types.Log{}, false
}

// Add creates a log from fields, stamping a fresh ID and createdAt, and
// prepends it to the collection.
func (s *Store) Add(f types.Fields) (types.Log, error) {
	s.mu.Lock()
	created := types.NewLog(s.newID(), s.Now(), f)
	logs := append([]types.Log{created}, s.read()...)
	err := s.persist(logs)
	s.mu.Unlock()

	if err != nil {
		return types.Log{}, err
	}
	s.log.Debug("log added", zap.String("id", created.ID))
	s.bus.Notify(s.key)
	return created, nil
}

// Update applies p to the log identified by id. An unknown id is a silent
// no-op: nothing is written and no change is announced.
func (s *Store) Update(id string, p types.Patch) error {
	s.mu.Lock()
	logs := s.read()
	found := false
	for i := range logs {
		if logs[i].ID == id {
			logs[i] = p.Apply(logs[i])
			found = true
		}
	}
	if !found {
		s.mu.Unlock()
		s.log.Debug("update of unknown log ignored", zap.String("id", id))
		return nil
	}
	err := s.persist(logs)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.bus.Notify(s.key)
	return nil
}

// Remove deletes the log identified by id. An unknown id is a silent no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	logs := s.read()
	kept := logs[:0]
	for _, l := range logs {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(logs) {
		s.mu.Unlock()
		return nil
	}
	err := s.persist(kept)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.bus.Notify(s.key)
	return nil
}

// Replace runs fn over the current collection (newest first) and persists
// its result, re-sorted, as the new collection with a single write and a
// single notification.
func (s *Store) Replace(fn func(current []types.Log) []types.Log) error {
	s.mu.Lock()
	current := s.read()
	types.SortLogs(current)
	next := fn(current)
	types.SortLogs(next)
	err := s.persist(next)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.bus.Notify(s.key)
	return nil
}

// read loads the collection in stored order.
func (s *Store) read() []types.Log {
	data, err := s.slots.Get(s.key)
	if err != nil {
		if !errors.Is(err, types.ErrSlotNotFound) {
			s.log.Warn("reading log collection", zap.Error(err))
		}
		return []types.Log{}
	}
	var logs []types.Log
	if err := json.Unmarshal(data, &logs); err != nil {
		s.log.Warn("log collection is corrupt; treating as empty", zap.Error(err))
		return []types.Log{}
	}
	for i := range logs {
		if logs[i].Tags == nil {
			logs[i].Tags = []string{}
		}
	}
	return logs
}

// persist writes the whole collection.
func (s *Store) persist(logs []types.Log) error {
	if logs == nil {
		logs = []types.Log{}
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encoding log collection: %w", err)
	}
	if err := s.slots.Set(s.key, data); err != nil {
		return fmt.Errorf("persisting log collection: %w", err)
	}
	return nil
}
