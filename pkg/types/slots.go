package types

import (
	"context"
	"errors"
)

// Slot keys. Each key holds one serialized JSON value.
const (
	LogsSlot  = "lab_notebook_logs_v1"
	DraftSlot = "lab_notebook_draft_v1"
)

// SlotStore is a named-key byte store. Every Set replaces the whole value
// atomically: readers observe either the previous value or the new one.
type SlotStore interface {
	// Get returns the value stored under key.
	// Returns ErrSlotNotFound if the key has never been set or was deleted.
	Get(key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(key string) error

	// Close releases backend resources. Idempotent.
	Close() error
}

// Watcher is implemented by slot stores that can observe writes made by
// other processes attached to the same data. Writes made through the
// watching store itself are never reported.
type Watcher interface {
	// Watch calls fn with the changed key until ctx is cancelled.
	// It returns once the watch is established; delivery happens on a
	// background goroutine.
	Watch(ctx context.Context, fn func(key string)) error
}

// Slot store errors.
var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrStoreClosed  = errors.New("slot store is closed")
	ErrInvalidKey   = errors.New("invalid slot key")
)
