package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, types.ErrDataDirEmpty)
}

func TestOpenCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSetGetDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(types.LogsSlot)
	assert.ErrorIs(t, err, types.ErrSlotNotFound)

	require.NoError(t, s.Set(types.LogsSlot, []byte(`[]`)))
	data, err := s.Get(types.LogsSlot)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	onDisk, err := os.ReadFile(filepath.Join(s.Dir(), types.LogsSlot+".json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(onDisk))

	require.NoError(t, s.Delete(types.LogsSlot))
	require.NoError(t, s.Delete(types.LogsSlot))
	_, err = s.Get(types.LogsSlot)
	assert.ErrorIs(t, err, types.ErrSlotNotFound)
}

func TestInvalidKey(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	for _, key := range []string{"", "../escape", `a\b`, ".."} {
		_, err := s.Get(key)
		assert.ErrorIs(t, err, types.ErrInvalidKey, key)
		assert.ErrorIs(t, s.Set(key, nil), types.ErrInvalidKey, key)
	}
}

func TestClosedStore(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get(types.LogsSlot)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	assert.ErrorIs(t, s.Set(types.LogsSlot, nil), types.ErrStoreClosed)
	assert.ErrorIs(t, s.Watch(context.Background(), func(string) {}), types.ErrStoreClosed)
}

func TestKeyFromPath(t *testing.T) {
	key, ok := keyFromPath("/data/lab_notebook_logs_v1.json")
	assert.True(t, ok)
	assert.Equal(t, types.LogsSlot, key)

	_, ok = keyFromPath("/data/lab_notebook_logs_v1.json4821903")
	assert.False(t, ok)
	_, ok = keyFromPath("/data/.hidden.json")
	assert.False(t, ok)
	_, ok = keyFromPath("/data/logbook.db")
	assert.False(t, ok)
}

// keyRecorder collects keys delivered by a watcher.
type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *keyRecorder) record(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r *keyRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func TestWatchReportsForeignWritesOnly(t *testing.T) {
	dir := t.TempDir()

	watching, err := Open(dir)
	require.NoError(t, err)
	defer watching.Close()

	other, err := Open(dir)
	require.NoError(t, err)
	defer other.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &keyRecorder{}
	require.NoError(t, watching.Watch(ctx, rec.record))

	// Own write: suppressed.
	require.NoError(t, watching.Set(types.LogsSlot, []byte(`[{"id":"mine"}]`)))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	// Foreign write from a second store on the same directory.
	require.NoError(t, other.Set(types.DraftSlot, []byte(`{"title":"x"}`)))
	require.Eventually(t, func() bool {
		for _, k := range rec.snapshot() {
			if k == types.DraftSlot {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	for _, k := range rec.snapshot() {
		assert.Equal(t, types.DraftSlot, k)
	}
}

func TestWatchStopsOnClose(t *testing.T) {
	dir := t.TempDir()
	watching, err := Open(dir)
	require.NoError(t, err)

	rec := &keyRecorder{}
	require.NoError(t, watching.Watch(context.Background(), rec.record))
	require.NoError(t, watching.Close())

	other, err := Open(dir)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.Set(types.LogsSlot, []byte(`[]`)))

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
