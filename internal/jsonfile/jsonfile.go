// Package jsonfile implements a slot store that keeps each slot in its own
// JSON file inside the data directory. Writes go through a temp file and a
// rename, so readers in other processes never observe a partial value.
package jsonfile

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// fileExt is appended to a slot key to form its file name.
const fileExt = ".json"

// Store is a directory-backed types.SlotStore and types.Watcher.
type Store struct {
	dir string
	log *zap.Logger

	mu     sync.Mutex
	closed bool
	// written holds the digest of the last value this process wrote per
	// key; a deleted key maps to the zero digest. The watcher drops events
	// whose on-disk content still matches.
	written map[string][sha256.Size]byte
	stops   []func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for watcher diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open creates dir if needed and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, types.ErrDataDirEmpty
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s := &Store{
		dir:     dir,
		log:     zap.NewNop(),
		written: make(map[string][sha256.Size]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && key != "." && key != ".."
}

// Get reads the slot file for key.
func (s *Store) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	if s.isClosed() {
		return nil, types.ErrStoreClosed
	}
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, types.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return data, nil
}

// Set atomically replaces the slot file for key.
func (s *Store) Set(key string, value []byte) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	// Record the digest before the rename lands so the watcher cannot see
	// our own write as foreign.
	prev, hadPrev := s.written[key]
	s.written[key] = sha256.Sum256(value)
	if err := atomic.WriteFile(s.Path(key), bytes.NewReader(value)); err != nil {
		if hadPrev {
			s.written[key] = prev
		} else {
			delete(s.written, key)
		}
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	return nil
}

// Delete removes the slot file for key. A missing file is not an error.
func (s *Store) Delete(key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	s.written[key] = [sha256.Size]byte{}
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	return nil
}

// Close stops every watcher started on this store. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ownWrite reports whether the current content of key (nil when the file
// is gone) is exactly what this process last wrote.
func (s *Store) ownWrite(key string, content []byte, exists bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest, ok := s.written[key]
	if !ok {
		return false
	}
	if !exists {
		return digest == [sha256.Size]byte{}
	}
	return digest == sha256.Sum256(content)
}
