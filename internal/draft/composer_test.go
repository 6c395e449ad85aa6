package draft

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/internal/memory"
	"github.com/mesh-intelligence/logbook/internal/observer"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

type fixture struct {
	slots    *memory.Store
	obs      *observer.Observer
	slot     *Slot
	composer *Composer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	slots := memory.New()
	b := bus.New()
	obs := observer.Open(logstore.New(slots, b), b)
	t.Cleanup(obs.Close)
	slot := NewSlot(slots, WithSlotClock(fixedClock), WithSlotBus(b))
	c := NewComposer(obs, slot, WithDebounce(testDelay))
	t.Cleanup(c.Close)
	return &fixture{slots: slots, obs: obs, slot: slot, composer: c}
}

func TestMountWithoutDraft(t *testing.T) {
	f := newFixture(t)
	v, ok := f.composer.Mount()
	assert.False(t, ok)
	assert.Equal(t, types.DraftFields{}, v)
	assert.Empty(t, f.composer.Status())
}

func TestMountRestoresDraftWithProvenance(t *testing.T) {
	f := newFixture(t)
	_, err := f.slot.Save(types.DraftFields{Title: "half done", TagsText: "x"})
	require.NoError(t, err)

	v, ok := f.composer.Mount()
	require.True(t, ok)
	assert.Equal(t, "half done", v.Title)
	want := fmt.Sprintf("Draft loaded (%s).", savedAt.Local().Format("15:04:05"))
	assert.Equal(t, want, f.composer.Status())
}

func TestChangeAutosaves(t *testing.T) {
	f := newFixture(t)
	f.composer.Change(types.DraftFields{Title: "typing"})

	require.Eventually(t, func() bool {
		d, ok := f.slot.Load()
		return ok && d.Title == "typing"
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.composer.Status() == fmt.Sprintf("Draft saved (%s).", savedAt.Local().Format("15:04:05"))
	}, time.Second, 5*time.Millisecond)
}

func TestCommitCreatesLogAndClearsDraft(t *testing.T) {
	f := newFixture(t)
	f.composer.Change(types.DraftFields{Title: "  Bring-up  ", Project: " rover ", TagsText: "hw, , ros ,", Body: "  ok \n"})
	require.NoError(t, f.composer.Autosaver().Flush())

	l, err := f.composer.Commit()
	require.NoError(t, err)
	assert.Equal(t, "Bring-up", l.Title)
	assert.Equal(t, "rover", l.Project)
	assert.Equal(t, []string{"hw", "ros"}, l.Tags)
	assert.Equal(t, "ok", l.Body)

	_, ok := f.obs.Get(l.ID)
	assert.True(t, ok)
	_, ok = f.slot.Load()
	assert.False(t, ok)
	assert.Equal(t, types.DraftFields{}, f.composer.Value())

	time.Sleep(3 * testDelay)
	_, ok = f.slot.Load()
	assert.False(t, ok, "no autosave after commit")
}

func TestCommitRequiresTitle(t *testing.T) {
	f := newFixture(t)
	f.composer.Change(types.DraftFields{Title: "   ", Body: "kept"})

	_, err := f.composer.Commit()
	assert.ErrorIs(t, err, types.ErrTitleRequired)
	assert.Empty(t, f.obs.Logs())
	assert.Equal(t, "kept", f.composer.Value().Body)
}

func TestDiscard(t *testing.T) {
	f := newFixture(t)
	f.composer.Change(types.DraftFields{Title: "throwaway"})
	require.NoError(t, f.composer.Autosaver().Flush())

	require.NoError(t, f.composer.Discard())
	_, ok := f.slot.Load()
	assert.False(t, ok)
	assert.Equal(t, "Draft cleared.", f.composer.Status())
	assert.Empty(t, f.obs.Logs())
}
