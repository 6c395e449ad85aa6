// Package draft keeps the single in-progress, uncommitted entry of the
// creation surface: its persisted slot, the debounced autosaver that writes
// it and the composer that ties both to the record store.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Slot reads and writes the draft slot. It is independent of the record
// store's collection slot.
type Slot struct {
	slots types.SlotStore
	key   string
	bus   *bus.Bus
	now   func() time.Time
	log   *zap.Logger
}

// SlotOption configures a Slot.
type SlotOption func(*Slot)

// WithSlotBus announces every save and clear on b.
func WithSlotBus(b *bus.Bus) SlotOption {
	return func(s *Slot) { s.bus = b }
}

// WithSlotClock replaces time.Now for savedAt stamps.
func WithSlotClock(now func() time.Time) SlotOption {
	return func(s *Slot) { s.now = now }
}

// WithSlotLogger sets the logger.
func WithSlotLogger(l *zap.Logger) SlotOption {
	return func(s *Slot) { s.log = l }
}

// NewSlot returns a Slot over the draft key of slots.
func NewSlot(slots types.SlotStore, opts ...SlotOption) *Slot {
	s := &Slot{
		slots: slots,
		key:   types.DraftSlot,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the saved draft. A malformed payload is cleared and reported
// as absent.
func (s *Slot) Load() (types.Draft, bool) {
	data, err := s.slots.Get(s.key)
	if err != nil {
		if !errors.Is(err, types.ErrSlotNotFound) {
			s.log.Warn("reading draft", zap.Error(err))
		}
		return types.Draft{}, false
	}
	d, err := decodeDraft(data)
	if err != nil {
		s.log.Warn("draft is corrupt; clearing", zap.Error(err))
		if err := s.slots.Delete(s.key); err != nil {
			s.log.Warn("clearing corrupt draft", zap.Error(err))
		}
		return types.Draft{}, false
	}
	return d, true
}

// errNotObject rejects draft payloads that parse but are not JSON objects.
var errNotObject = errors.New("draft is not a JSON object")

// decodeDraft parses a draft payload. Anything but a JSON object with
// well-typed fields is an error.
func decodeDraft(data []byte) (types.Draft, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return types.Draft{}, err
	}
	if obj == nil {
		return types.Draft{}, errNotObject
	}
	var d types.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return types.Draft{}, err
	}
	return d, nil
}

// Save persists f stamped with the current time.
func (s *Slot) Save(f types.DraftFields) (types.Draft, error) {
	d := types.Draft{DraftFields: f, SavedAt: types.FormatTime(s.now())}
	data, err := json.Marshal(d)
	if err != nil {
		return types.Draft{}, fmt.Errorf("encoding draft: %w", err)
	}
	if err := s.slots.Set(s.key, data); err != nil {
		return types.Draft{}, fmt.Errorf("saving draft: %w", err)
	}
	s.notify()
	return d, nil
}

// Clear removes the draft. Clearing an absent draft is not an error.
func (s *Slot) Clear() error {
	if err := s.slots.Delete(s.key); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	s.notify()
	return nil
}

func (s *Slot) notify() {
	if s.bus != nil {
		s.bus.Notify(s.key)
	}
}
