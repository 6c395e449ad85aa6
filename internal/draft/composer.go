package draft

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/observer"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Composer is the creation surface: it restores a saved draft, autosaves
// edits and commits the result as a new log.
type Composer struct {
	obs  *observer.Observer
	slot *Slot
	auto *Autosaver
	log  *zap.Logger

	mu     sync.Mutex
	value  types.DraftFields
	status string
}

// ComposerOption configures a Composer.
type ComposerOption func(*composerConfig)

type composerConfig struct {
	delay time.Duration
	log   *zap.Logger
}

// WithDebounce sets the autosave delay.
func WithDebounce(d time.Duration) ComposerOption {
	return func(c *composerConfig) { c.delay = d }
}

// WithComposerLogger sets the logger.
func WithComposerLogger(l *zap.Logger) ComposerOption {
	return func(c *composerConfig) { c.log = l }
}

// NewComposer returns a Composer that creates logs through obs and keeps
// its draft in slot.
func NewComposer(obs *observer.Observer, slot *Slot, opts ...ComposerOption) *Composer {
	cfg := composerConfig{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Composer{obs: obs, slot: slot, log: cfg.log}
	c.auto = NewAutosaver(slot,
		WithDelay(cfg.delay),
		WithAutosaverLogger(cfg.log),
		WithOnSaved(c.saved),
	)
	return c
}

// Mount restores the saved draft, if any, and returns it.
func (c *Composer) Mount() (types.DraftFields, bool) {
	d, ok := c.slot.Load()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		return c.value, false
	}
	c.value = d.DraftFields
	if d.SavedAt != "" {
		c.status = fmt.Sprintf("Draft loaded (%s).", clockTime(d.SavedAt))
	}
	return c.value, true
}

// Value returns the current edit state.
func (c *Composer) Value() types.DraftFields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Status returns the provenance line shown next to the form: when the
// draft was loaded, saved or cleared.
func (c *Composer) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Autosaver exposes the composer's autosaver.
func (c *Composer) Autosaver() *Autosaver { return c.auto }

// Change records a new edit state and schedules an autosave.
func (c *Composer) Change(f types.DraftFields) {
	c.mu.Lock()
	c.value = f
	c.mu.Unlock()
	c.auto.Schedule(f)
}

// Commit creates a log from the current edit state and clears the draft.
// A blank title returns types.ErrTitleRequired and leaves everything as is.
func (c *Composer) Commit() (types.Log, error) {
	value := c.Value()
	fields := value.Fields()
	if err := fields.Validate(); err != nil {
		return types.Log{}, err
	}

	c.auto.Cancel()
	l, err := c.obs.Create(fields)
	if err != nil {
		c.auto.Schedule(value)
		return types.Log{}, err
	}
	if err := c.slot.Clear(); err != nil {
		c.log.Warn("clearing committed draft", zap.Error(err))
	}

	c.mu.Lock()
	c.value = types.DraftFields{}
	c.status = ""
	c.mu.Unlock()
	return l, nil
}

// Discard clears the saved draft without committing. The edit state is
// kept.
func (c *Composer) Discard() error {
	c.auto.Cancel()
	if err := c.slot.Clear(); err != nil {
		return err
	}
	c.mu.Lock()
	c.status = "Draft cleared."
	c.mu.Unlock()
	return nil
}

// Close stops the autosave timer. Unsaved changes are dropped.
func (c *Composer) Close() {
	c.auto.Cancel()
}

func (c *Composer) saved(d types.Draft) {
	c.mu.Lock()
	c.status = fmt.Sprintf("Draft saved (%s).", clockTime(d.SavedAt))
	c.mu.Unlock()
}

// clockTime renders an ISO timestamp as local wall-clock time.
func clockTime(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Local().Format("15:04:05")
}
