package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Watch polls PRAGMA data_version and, whenever another connection has
// committed, diffs the slot stamps to find which keys changed. Keys last
// written by this backend are not reported.
func (b *Backend) Watch(ctx context.Context, fn func(key string)) error {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return types.ErrStoreClosed
	}
	version, err := b.dataVersionLocked()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	stamps, err := b.stampsLocked()
	if err != nil {
		b.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	b.stops = append(b.stops, stop)
	b.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changed, next, nextStamps, err := b.pollOnce(version, stamps)
				if err != nil {
					b.log.Warn("polling slot changes", zap.Error(err))
					continue
				}
				version, stamps = next, nextStamps
				for _, key := range changed {
					if ctx.Err() != nil {
						return
					}
					b.log.Debug("external slot change", zap.String("key", key))
					fn(key)
				}
			}
		}
	}()
	return nil
}

// pollOnce performs one poll step. It returns the foreign keys changed since
// the previous snapshot together with the new version and stamps.
func (b *Backend) pollOnce(version int64, stamps map[string]string) ([]string, int64, map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, version, stamps, types.ErrStoreClosed
	}
	current, err := b.dataVersionLocked()
	if err != nil {
		return nil, version, stamps, err
	}
	if current == version {
		return nil, version, stamps, nil
	}
	next, err := b.stampsLocked()
	if err != nil {
		return nil, version, stamps, err
	}

	var changed []string
	for key, stamp := range next {
		if stamps[key] == stamp {
			continue
		}
		if own, ok := b.own[key]; ok && own == stamp {
			continue
		}
		changed = append(changed, key)
	}
	for key := range stamps {
		if _, ok := next[key]; ok {
			continue
		}
		if own, ok := b.own[key]; ok && own == "" {
			continue
		}
		changed = append(changed, key)
	}
	return changed, current, next, nil
}

// dataVersionLocked reads PRAGMA data_version. Caller holds b.mu.
func (b *Backend) dataVersionLocked() (int64, error) {
	var v int64
	if err := b.db.QueryRow(selectDataVersion).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading data_version: %w", err)
	}
	return v, nil
}

// stampsLocked returns updated_at per key. Caller holds b.mu.
func (b *Backend) stampsLocked() (map[string]string, error) {
	rows, err := b.db.Query(selectStamps)
	if err != nil {
		return nil, fmt.Errorf("reading slot stamps: %w", err)
	}
	defer rows.Close()

	stamps := make(map[string]string)
	for rows.Next() {
		var key, stamp string
		if err := rows.Scan(&key, &stamp); err != nil {
			return nil, fmt.Errorf("scanning slot stamp: %w", err)
		}
		stamps[key] = stamp
	}
	return stamps, rows.Err()
}
