// Package importer validates untrusted JSON payloads, normalizes them into
// logs and merges them into the record store by identity.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// ErrNotArray is returned for a payload whose top level is not an array.
var ErrNotArray = errors.New("payload is not a JSON array")

// Result is the outcome of decoding a payload. Exactly one of Rejected or
// the Logs/Dropped pair is meaningful.
type Result struct {
	Logs     []types.Log
	Dropped  int
	Rejected error
}

// OK reports whether the payload was accepted.
func (r Result) OK() bool { return r.Rejected == nil }

// Decode parses data as a JSON array and normalizes its elements.
// Unparsable JSON and non-array payloads are rejected.
func Decode(data []byte, now string, newID func() string) Result {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return Result{Rejected: fmt.Errorf("parsing payload: %w", err)}
	}
	candidates, ok := top.([]any)
	if !ok {
		return Result{Rejected: ErrNotArray}
	}
	logs, dropped := Normalize(candidates, now, newID)
	return Result{Logs: logs, Dropped: dropped}
}

// Merge overlays imported onto existing by ID. Imported records replace
// existing ones with the same ID; records unique to either side are kept.
// The result is sorted newest first.
func Merge(existing, imported []types.Log) []types.Log {
	index := make(map[string]int, len(existing)+len(imported))
	out := make([]types.Log, 0, len(existing)+len(imported))
	put := func(l types.Log) {
		if i, ok := index[l.ID]; ok {
			out[i] = l
			return
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	for _, l := range existing {
		put(l)
	}
	for _, l := range imported {
		put(l)
	}
	types.SortLogs(out)
	return out
}

// Status summarizes one import for the user.
type Status struct {
	Imported int
	Dropped  int
	Err      error
}

// Message renders the status line shown after an import.
func (s Status) Message() string {
	if s.Err != nil {
		return "Import failed: " + s.Err.Error()
	}
	return fmt.Sprintf("Imported %d log(s).", s.Imported)
}

// Importer merges payloads into a record store.
type Importer struct {
	store *logstore.Store
	log   *zap.Logger
}

// New returns an Importer writing to store.
func New(store *logstore.Store, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, log: log}
}

// Import reads a payload to completion and merges it with a single store
// write. A rejected payload or one without valid records leaves the store
// untouched.
func (im *Importer) Import(r io.Reader) Status {
	data, err := io.ReadAll(r)
	if err != nil {
		return Status{Err: fmt.Errorf("reading payload: %w", err)}
	}
	return im.ImportBytes(data)
}

// ImportBytes is Import over an in-memory payload.
func (im *Importer) ImportBytes(data []byte) Status {
	res := Decode(data, im.store.Now(), im.store.NextID)
	if !res.OK() {
		im.log.Info("import rejected", zap.Error(res.Rejected))
		return Status{Err: res.Rejected}
	}
	st := Status{Imported: len(res.Logs), Dropped: res.Dropped}
	if len(res.Logs) == 0 {
		return st
	}

	err := im.store.Replace(func(current []types.Log) []types.Log {
		return Merge(current, res.Logs)
	})
	if err != nil {
		return Status{Err: err}
	}
	im.log.Info("import merged", zap.Int("imported", st.Imported), zap.Int("dropped", st.Dropped))
	return st
}
