// Package sqlite implements a slot store on top of a SQLite database. All
// slots share one table; each Set is a single UPSERT statement, so a slot
// is always replaced as a whole.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "logbook.db"

// defaultPollInterval is how often Watch samples PRAGMA data_version.
const defaultPollInterval = 250 * time.Millisecond

// Backend implements types.SlotStore and types.Watcher using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	log      *zap.Logger
	poll     time.Duration
	stops    []func()

	// own maps each key to the updated_at stamp of this backend's last
	// write; deletes record an empty stamp. Watch skips matching changes.
	own map[string]string
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for watcher diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// WithPollInterval sets how often Watch checks for foreign commits.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.poll = d
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log:  zap.NewNop(),
		poll: defaultPollInterval,
		own:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens (or creates) the database in config.DataDir and ensures the
// schema exists. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(config.DataDir, DBFileName))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	// One connection: PRAGMA data_version is per connection and only moves
	// for commits made by other connections, which is exactly the signal
	// Watch needs.
	db.SetMaxOpenConns(1)

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(createSlots); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach stops watchers and closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return nil
	}
	b.attached = false
	stops := b.stops
	b.stops = nil
	db := b.db
	b.db = nil
	b.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	if db != nil {
		return db.Close()
	}
	return nil
}

// Close is Detach, satisfying types.SlotStore.
func (b *Backend) Close() error {
	return b.Detach()
}

// Get returns the value stored under key.
func (b *Backend) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, types.ErrInvalidKey
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreClosed
	}
	var value []byte
	err := b.db.QueryRow(selectSlot, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set replaces the value stored under key in one statement.
func (b *Backend) Set(key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreClosed
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := b.db.Exec(upsertSlot, key, value, stamp); err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	b.own[key] = stamp
	return nil
}

// Delete removes key. Absent keys are ignored.
func (b *Backend) Delete(key string) error {
	if key == "" {
		return types.ErrInvalidKey
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreClosed
	}
	if _, err := b.db.Exec(deleteSlot, key); err != nil {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	b.own[key] = ""
	return nil
}

// ErrAlreadyAttached is returned by Attach on an attached backend.
var ErrAlreadyAttached = errors.New("backend is already attached")
