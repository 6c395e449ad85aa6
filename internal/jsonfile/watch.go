package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Watch observes the data directory and calls fn with the key of every slot
// file changed by another process. Changes whose content matches this
// store's own last write are not reported. The watch ends when ctx is
// cancelled or the store is closed.
func (s *Store) Watch(ctx context.Context, fn func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = watcher.Close()
		})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stop()
		return types.ErrStoreClosed
	}
	s.stops = append(s.stops, stop)
	s.mu.Unlock()

	go func() {
		defer stop()
		s.processEvents(ctx, watcher, fn)
	}()
	return nil
}

// processEvents filters raw filesystem events down to foreign slot changes.
func (s *Store) processEvents(ctx context.Context, watcher *fsnotify.Watcher, fn func(key string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			key, ok := keyFromPath(event.Name)
			if !ok {
				continue
			}
			content, err := os.ReadFile(event.Name)
			exists := err == nil
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				s.log.Warn("reading changed slot", zap.String("key", key), zap.Error(err))
				continue
			}
			if s.ownWrite(key, content, exists) {
				continue
			}
			s.log.Debug("external slot change", zap.String("key", key), zap.String("op", event.Op.String()))
			fn(key)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("slot watcher error", zap.Error(err))
		}
	}
}

// keyFromPath maps a slot file path back to its key. Temp files and other
// directory entries are rejected.
func keyFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, fileExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	key := strings.TrimSuffix(base, fileExt)
	if !validKey(key) {
		return "", false
	}
	return key, true
}
