package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/internal/export"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/internal/memory"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

const fixedNow = "2025-06-01T12:00:00.000Z"

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func newStore(t *testing.T) (*logstore.Store, *memory.Store) {
	t.Helper()
	slots := memory.New()
	s := logstore.New(slots, bus.New(),
		logstore.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }),
		logstore.WithIDFunc(seqIDs()),
	)
	return s, slots
}

func TestNormalize(t *testing.T) {
	candidates := []any{
		"not an object",
		map[string]any{"body": "no title"},
		map[string]any{"title": ""},
		map[string]any{"title": " \t\n"},
		map[string]any{"title": 42.0},
		map[string]any{
			"title":     "Full",
			"id":        "keep-me",
			"project":   "rover",
			"tags":      []any{"a", "", nil, false, "b", 3.0},
			"body":      "text",
			"createdAt": "2024-01-01T00:00:00.000Z",
		},
		map[string]any{
			"title":     "Coerced",
			"id":        "  ",
			"project":   7.0,
			"tags":      "a,b",
			"body":      true,
			"createdAt": 123.0,
		},
	}

	logs, dropped := Normalize(candidates, fixedNow, seqIDs())
	assert.Equal(t, 5, dropped)
	require.Len(t, logs, 2)

	assert.Equal(t, types.Log{
		ID: "keep-me", Title: "Full", Project: "rover", Tags: []string{"a", "b"},
		Body: "text", CreatedAt: "2024-01-01T00:00:00.000Z",
	}, logs[0])
	assert.Equal(t, types.Log{
		ID: "gen-1", Title: "Coerced", Tags: []string{}, CreatedAt: fixedNow,
	}, logs[1])
}

func TestNormalizeAttachments(t *testing.T) {
	candidates := []any{
		map[string]any{
			"title": "with files",
			"attachments": []any{
				map[string]any{"id": "a1", "name": "arm.urdf", "type": "text/xml", "size": 12.0, "dataUrl": "data:text/xml;base64,AA==", "createdAt": "2024-01-01T00:00:00.000Z"},
				map[string]any{"id": "a2", "name": "x.bin", "size": -5.0, "dataUrl": "data:;base64,"},
				map[string]any{"id": "a3", "name": "missing data"},
				"junk",
			},
		},
		map[string]any{"title": "bad attachments", "attachments": "nope"},
	}

	logs, dropped := Normalize(candidates, fixedNow, seqIDs())
	assert.Zero(t, dropped)
	require.Len(t, logs, 2)
	assert.Equal(t, []types.Attachment{
		{ID: "a1", Name: "arm.urdf", Type: "text/xml", Size: 12, DataURL: "data:text/xml;base64,AA==", CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "a2", Name: "x.bin", Size: 0, DataURL: "data:;base64,", CreatedAt: fixedNow},
	}, logs[0].Attachments)
	assert.Nil(t, logs[1].Attachments)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		rejected bool
		logs     int
		dropped  int
	}{
		{"not json", `"not json`, true, 0, 0},
		{"bare string", `"not json"`, true, 0, 0},
		{"object", `{"title":"X"}`, true, 0, 0},
		{"empty array", `[]`, false, 0, 0},
		{"mixed", `[{"title":"X"}, 1, {"id":"y"}]`, false, 1, 2},
		{"whitespace title", `[{"title":"   "}, {"title":" kept "}]`, false, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Decode([]byte(tt.input), fixedNow, seqIDs())
			assert.Equal(t, tt.rejected, !res.OK())
			assert.Len(t, res.Logs, tt.logs)
			assert.Equal(t, tt.dropped, res.Dropped)
		})
	}
}

func TestDecodeObjectIsNotArray(t *testing.T) {
	res := Decode([]byte(`{}`), fixedNow, seqIDs())
	assert.ErrorIs(t, res.Rejected, ErrNotArray)
}

func TestMergeOverride(t *testing.T) {
	existing := []types.Log{
		{ID: "1", Title: "old one", Tags: []string{}, CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "2", Title: "two", Tags: []string{}, CreatedAt: "2024-01-02T00:00:00.000Z"},
	}
	imported := []types.Log{
		{ID: "1", Title: "new one", Tags: []string{"x"}, CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "3", Title: "three", Tags: []string{}, CreatedAt: "2024-01-03T00:00:00.000Z"},
	}

	got := Merge(existing, imported)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "new one", got[2].Title)
	assert.Equal(t, []string{"x"}, got[2].Tags)
}

func TestMergeIdempotent(t *testing.T) {
	logs := []types.Log{
		{ID: "a", Title: "a", Tags: []string{}, CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "b", Title: "b", Tags: []string{}, CreatedAt: "2024-01-01T00:00:00.000Z"},
	}
	once := Merge(nil, logs)
	twice := Merge(once, logs)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("merge not idempotent (-once +twice):\n%s", diff)
	}
}

func TestImportSingleTitleScenario(t *testing.T) {
	s, _ := newStore(t)
	calls := 0
	s.Bus().Subscribe(func(bus.Event) { calls++ })

	st := New(s, nil).Import(strings.NewReader(`[{"title":"X"}]`))
	require.NoError(t, st.Err)
	assert.Equal(t, "Imported 1 log(s).", st.Message())
	assert.Equal(t, 1, calls)

	logs := s.List()
	require.Len(t, logs, 1)
	assert.Equal(t, "X", logs[0].Title)
	assert.NotEmpty(t, logs[0].ID)
	assert.Equal(t, []string{}, logs[0].Tags)
	assert.Equal(t, "", logs[0].Body)
	assert.Equal(t, fixedNow, logs[0].CreatedAt)
}

func TestImportNotJSONScenario(t *testing.T) {
	s, slots := newStore(t)
	_, err := s.Add(types.Fields{Title: "keep"})
	require.NoError(t, err)
	before, err := slots.Get(types.LogsSlot)
	require.NoError(t, err)

	calls := 0
	s.Bus().Subscribe(func(bus.Event) { calls++ })

	st := New(s, nil).Import(strings.NewReader(`"not json`))
	require.Error(t, st.Err)
	assert.True(t, strings.HasPrefix(st.Message(), "Import failed: "))
	assert.Zero(t, calls)

	after, err := slots.Get(types.LogsSlot)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImportNothingValidWritesNothing(t *testing.T) {
	s, slots := newStore(t)
	calls := 0
	s.Bus().Subscribe(func(bus.Event) { calls++ })

	st := New(s, nil).Import(strings.NewReader(`[1, {"body":"x"}]`))
	require.NoError(t, st.Err)
	assert.Equal(t, 0, st.Imported)
	assert.Equal(t, 2, st.Dropped)
	assert.Zero(t, calls)

	_, err := slots.Get(types.LogsSlot)
	assert.ErrorIs(t, err, types.ErrSlotNotFound)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestImportReadFailure(t *testing.T) {
	s, _ := newStore(t)
	st := New(s, nil).Import(failingReader{})
	require.Error(t, st.Err)
	assert.Contains(t, st.Message(), "device gone")
}

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := newStore(t)
	_, err := src.Add(types.Fields{Title: "first", Project: "rover", Tags: []string{"a"}, Body: "# hi\n\n```xml\n<robot name=\"r\"/>\n```"})
	require.NoError(t, err)
	_, err = src.Add(types.Fields{Title: "second \"quoted\"", Attachments: []types.Attachment{
		{ID: "att", Name: "a.txt", Type: "text/plain", Size: 3, DataURL: "data:text/plain;base64,YWJj", CreatedAt: fixedNow},
	}})
	require.NoError(t, err)
	want := src.List()

	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, want))

	dst, _ := newStore(t)
	st := New(dst, nil).Import(&buf)
	require.NoError(t, st.Err)
	assert.Equal(t, 2, st.Imported)

	if diff := cmp.Diff(want, dst.List(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
