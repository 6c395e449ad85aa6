package draft

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// DefaultDebounce is the autosave delay after the last change.
const DefaultDebounce = 400 * time.Millisecond

// Autosaver debounces draft writes: every Schedule re-arms one timer and
// only the value pending when it fires is saved.
type Autosaver struct {
	slot    *Slot
	delay   time.Duration
	log     *zap.Logger
	onSaved func(types.Draft)

	// saveMu is held across every write so Cancel can wait out a save in
	// flight.
	saveMu sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending *types.DraftFields
	gen     uint64
}

// AutosaverOption configures an Autosaver.
type AutosaverOption func(*Autosaver)

// WithDelay sets the debounce delay. Non-positive values keep the default.
func WithDelay(d time.Duration) AutosaverOption {
	return func(a *Autosaver) {
		if d > 0 {
			a.delay = d
		}
	}
}

// WithOnSaved registers fn to run after each successful save. fn must not
// call back into the Autosaver.
func WithOnSaved(fn func(types.Draft)) AutosaverOption {
	return func(a *Autosaver) { a.onSaved = fn }
}

// WithAutosaverLogger sets the logger.
func WithAutosaverLogger(l *zap.Logger) AutosaverOption {
	return func(a *Autosaver) { a.log = l }
}

// NewAutosaver returns an idle Autosaver writing to slot.
func NewAutosaver(slot *Slot, opts ...AutosaverOption) *Autosaver {
	a := &Autosaver{
		slot:  slot,
		delay: DefaultDebounce,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Delay returns the debounce delay.
func (a *Autosaver) Delay() time.Duration { return a.delay }

// Schedule replaces the pending value with f and re-arms the timer.
func (a *Autosaver) Schedule(f types.DraftFields) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = &f
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
	}
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Pending reports whether a value is waiting to be saved.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Flush saves the pending value immediately, if any.
func (a *Autosaver) Flush() error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	f, ok := a.take(0, false)
	if !ok {
		return nil
	}
	return a.save(f)
}

// Cancel stops the timer and drops the pending value. It waits for a save
// in flight; nothing is saved after it returns unless Schedule is called
// again.
func (a *Autosaver) Cancel() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	a.take(0, false)
}

func (a *Autosaver) fire(gen uint64) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	f, ok := a.take(gen, true)
	if !ok {
		return
	}
	if err := a.save(f); err != nil {
		a.log.Warn("autosaving draft", zap.Error(err))
	}
}

// take clears the pending value and timer and returns what was pending.
// With match set it only proceeds when gen is still current.
func (a *Autosaver) take(gen uint64, match bool) (types.DraftFields, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if match && gen != a.gen {
		return types.DraftFields{}, false
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	p := a.pending
	a.pending = nil
	if p == nil {
		return types.DraftFields{}, false
	}
	return *p, true
}

func (a *Autosaver) save(f types.DraftFields) error {
	d, err := a.slot.Save(f)
	if err != nil {
		return err
	}
	a.log.Debug("draft saved", zap.String("savedAt", d.SavedAt))
	if a.onSaved != nil {
		a.onSaved(d)
	}
	return nil
}
