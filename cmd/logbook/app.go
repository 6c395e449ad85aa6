package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/backend"
	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/internal/draft"
	"github.com/mesh-intelligence/logbook/internal/logging"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/internal/observer"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

// app is the wiring shared by commands that touch the logbook: one slot
// store, its change bus, the record store and a mounted observer.
type app struct {
	settings settings
	log      *zap.Logger
	slots    types.SlotStore
	bus      *bus.Bus
	store    *logstore.Store
	obs      *observer.Observer
}

// openApp loads settings and attaches the configured backend. The caller
// must defer Close.
func openApp() (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, sysError(err)
	}

	log, err := logging.New(s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, userError("%v", err)
	}

	slots, err := backend.Open(types.Config{Backend: s.Backend, DataDir: s.DataDir}, log)
	if errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrBackendEmpty) {
		return nil, userError("backend %q: %v", s.Backend, err)
	}
	if err != nil {
		return nil, sysError(err)
	}

	b := bus.New(bus.WithLogger(log))
	store := logstore.New(slots, b, logstore.WithLogger(log))
	return &app{
		settings: s,
		log:      log,
		slots:    slots,
		bus:      b,
		store:    store,
		obs:      observer.Open(store, b, observer.WithLogger(log)),
	}, nil
}

// Close releases the backend.
func (a *app) Close() {
	a.obs.Close()
	if err := a.slots.Close(); err != nil {
		a.log.Warn("closing backend", zap.Error(err))
	}
	_ = a.log.Sync()
}

// draftSlot returns the draft slot, announcing its changes on the bus.
func (a *app) draftSlot() *draft.Slot {
	return draft.NewSlot(a.slots, draft.WithSlotBus(a.bus), draft.WithSlotLogger(a.log))
}

// composer returns a creation surface over the draft slot.
func (a *app) composer() *draft.Composer {
	return draft.NewComposer(a.obs, a.draftSlot(),
		draft.WithDebounce(a.settings.DraftDebounce),
		draft.WithComposerLogger(a.log),
	)
}

// watch forwards changes made by other processes to the bus until ctx is
// cancelled. Backends that cannot be watched are skipped.
func (a *app) watch(ctx context.Context) error {
	w, ok := a.slots.(types.Watcher)
	if !ok {
		a.log.Info("backend does not report external changes")
		return nil
	}
	return a.bus.Bridge(ctx, w)
}

// lookupLog returns the log with id or a user error.
func (a *app) lookupLog(id string) (types.Log, error) {
	l, ok := a.obs.Get(id)
	if !ok {
		return types.Log{}, userError("log not found: %s", id)
	}
	return l, nil
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// readInput reads a file, or the command's stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
