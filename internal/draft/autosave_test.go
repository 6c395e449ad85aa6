package draft

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/logbook/internal/memory"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

const testDelay = 20 * time.Millisecond

func TestAutosaverDefaultDelay(t *testing.T) {
	a := NewAutosaver(NewSlot(memory.New()), WithDelay(0))
	assert.Equal(t, DefaultDebounce, a.Delay())
}

func TestAutosaverSavesOnlyLastValue(t *testing.T) {
	slot := NewSlot(memory.New())
	var saves atomic.Int32
	a := NewAutosaver(slot, WithDelay(testDelay), WithOnSaved(func(types.Draft) { saves.Add(1) }))

	a.Schedule(types.DraftFields{Title: "a"})
	a.Schedule(types.DraftFields{Title: "ab"})
	a.Schedule(types.DraftFields{Title: "abc"})
	assert.True(t, a.Pending())

	require.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, 5*time.Millisecond)
	d, ok := slot.Load()
	require.True(t, ok)
	assert.Equal(t, "abc", d.Title)
	assert.False(t, a.Pending())

	time.Sleep(3 * testDelay)
	assert.Equal(t, int32(1), saves.Load())
}

func TestAutosaverFlush(t *testing.T) {
	slot := NewSlot(memory.New())
	a := NewAutosaver(slot, WithDelay(time.Hour))

	require.NoError(t, a.Flush(), "nothing pending")
	a.Schedule(types.DraftFields{Title: "now"})
	require.NoError(t, a.Flush())

	d, ok := slot.Load()
	require.True(t, ok)
	assert.Equal(t, "now", d.Title)
	assert.False(t, a.Pending())
}

func TestAutosaverCancel(t *testing.T) {
	slot := NewSlot(memory.New())
	var saves atomic.Int32
	a := NewAutosaver(slot, WithDelay(testDelay), WithOnSaved(func(types.Draft) { saves.Add(1) }))

	a.Schedule(types.DraftFields{Title: "dropped"})
	a.Cancel()
	time.Sleep(3 * testDelay)

	assert.Zero(t, saves.Load())
	_, ok := slot.Load()
	assert.False(t, ok)
}
