package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	ts := time.Date(2025, 3, 7, 9, 4, 5, 123456789, time.FixedZone("X", 3600))
	assert.Equal(t, "2025-03-07T08:04:05.123Z", FormatTime(ts))
	assert.Len(t, FormatTime(time.Unix(0, 0)), len(TimeLayout))
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{}},
		{name: "only separators", text: " , ,, ", want: []string{}},
		{name: "trims and keeps order", text: " ros2, px4 ,control", want: []string{"ros2", "px4", "control"}},
		{name: "keeps duplicates", text: "a,b,a", want: []string{"a", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.text))
		})
	}
}

func TestFieldsValidate(t *testing.T) {
	assert.ErrorIs(t, Fields{}.Validate(), ErrTitleRequired)
	assert.ErrorIs(t, Fields{Title: " \t\n"}.Validate(), ErrTitleRequired)
	assert.NoError(t, Fields{Title: "Test"}.Validate())
}

func TestPatchValidate(t *testing.T) {
	blank := "  "
	title := "ok"
	assert.NoError(t, Patch{}.Validate())
	assert.ErrorIs(t, Patch{Title: &blank}.Validate(), ErrTitleRequired)
	assert.NoError(t, Patch{Title: &title}.Validate())
}

func TestPatchApply(t *testing.T) {
	orig := Log{
		ID:        "a",
		Title:     "X",
		Project:   "P",
		Tags:      []string{"t1"},
		Body:      "body",
		CreatedAt: "2025-01-01T00:00:00.000Z",
	}

	title := "Y"
	tags := []string{"t2", "t3"}
	got := Patch{Title: &title, Tags: &tags}.Apply(orig)

	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "2025-01-01T00:00:00.000Z", got.CreatedAt)
	assert.Equal(t, "Y", got.Title)
	assert.Equal(t, "P", got.Project)
	assert.Equal(t, []string{"t2", "t3"}, got.Tags)
	assert.Equal(t, "body", got.Body)

	// The original is not aliased.
	tags[0] = "mutated"
	assert.Equal(t, "t2", got.Tags[0])
	assert.Equal(t, "X", orig.Title)
}

func TestPatchEmpty(t *testing.T) {
	body := ""
	assert.True(t, Patch{}.Empty())
	assert.False(t, Patch{Body: &body}.Empty())
}

func TestNewLogNilTags(t *testing.T) {
	l := NewLog("id", "ts", Fields{Title: "T"})
	require.NotNil(t, l.Tags)
	assert.Empty(t, l.Tags)
}

func TestRemoveAttachment(t *testing.T) {
	list := []Attachment{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	got := RemoveAttachment(list, "2")
	assert.Equal(t, []Attachment{{ID: "1"}, {ID: "3"}}, got)
	assert.Len(t, list, 3)
	assert.Len(t, RemoveAttachment(list, "missing"), 3)
}

func TestSortLogsStable(t *testing.T) {
	logs := []Log{
		{ID: "old", CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "tie-first", CreatedAt: "2025-01-01T00:00:00.000Z"},
		{ID: "new", CreatedAt: "2026-01-01T00:00:00.000Z"},
		{ID: "tie-second", CreatedAt: "2025-01-01T00:00:00.000Z"},
	}
	SortLogs(logs)

	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"new", "tie-first", "tie-second", "old"}, ids)
}

func TestDraftFieldsFields(t *testing.T) {
	d := DraftFields{
		Title:    "  Lane following  ",
		Project:  "  ",
		TagsText: "ros2, , px4",
		Body:     "\nnotes\n",
	}
	f := d.Fields()
	assert.Equal(t, "Lane following", f.Title)
	assert.Equal(t, "", f.Project)
	assert.Equal(t, []string{"ros2", "px4"}, f.Tags)
	assert.Equal(t, "notes", f.Body)
}
