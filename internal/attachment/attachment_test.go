package attachment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

var fixed = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testOpts() []Option {
	return []Option{
		WithClock(func() time.Time { return fixed }),
		WithIDFunc(func() string { return "att-1" }),
	}
}

func TestFromReader(t *testing.T) {
	a, err := FromReader("notes.json", strings.NewReader("abc"), testOpts()...)
	require.NoError(t, err)
	assert.Equal(t, types.Attachment{
		ID:        "att-1",
		Name:      "notes.json",
		Type:      "application/json",
		Size:      3,
		DataURL:   "data:application/json;base64,YWJj",
		CreatedAt: "2025-06-01T12:00:00.000Z",
	}, a)
}

func TestFromReaderUnknownType(t *testing.T) {
	a, err := FromReader("blob.zzz", strings.NewReader("plain"), testOpts()...)
	require.NoError(t, err)
	assert.Equal(t, "", a.Type)
	assert.True(t, strings.HasPrefix(a.DataURL, "data:application/octet-stream;base64,"))
}

func TestDetectTypeSniffsContent(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	assert.Equal(t, "image/png", DetectType("screenshot", png))
	assert.Equal(t, "application/json", DetectType("data.JSON", nil))
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("read aborted") }

func TestFromReaderFailure(t *testing.T) {
	_, err := FromReader("x.txt", brokenReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read aborted")
}

func TestFromFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		paths = append(paths, p)
	}

	got, err := FromFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		assert.Equal(t, name, got[i].Name)
		data, err := Decode(got[i])
		require.NoError(t, err)
		assert.Equal(t, name, string(data))
	}
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestFromFilesMissing(t *testing.T) {
	_, err := FromFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecode(t *testing.T) {
	data, err := Decode(types.Attachment{DataURL: "data:text/plain,hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = Decode(types.Attachment{DataURL: "data:text/plain;charset=utf-8,hello%20world%2C%0A"})
	require.NoError(t, err)
	assert.Equal(t, "hello world,\n", string(data))

	_, err = Decode(types.Attachment{Name: "pct", DataURL: "data:text/plain,100%zz"})
	assert.Error(t, err)

	_, err = Decode(types.Attachment{DataURL: "http://example.com"})
	assert.ErrorIs(t, err, ErrNotDataURL)

	_, err = Decode(types.Attachment{DataURL: "data:;base64"})
	assert.ErrorIs(t, err, ErrNotDataURL)

	_, err = Decode(types.Attachment{Name: "bad", DataURL: "data:;base64,***"})
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "0 B", FormatSize(-1))
	assert.Equal(t, "1.0 KiB", FormatSize(1024))
	assert.Equal(t, "1.5 MiB", FormatSize(1536*1024))
}
