// Package attachment turns files into self-contained attachments (base64
// data URLs) and back.
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// ErrNotDataURL is returned by Decode for a malformed data URL.
var ErrNotDataURL = errors.New("not a data URL")

// maxParallelReads bounds concurrent file reads in FromFiles.
const maxParallelReads = 4

// defaultDataType is used in the data URL when the type is unknown.
const defaultDataType = "application/octet-stream"

type options struct {
	now   func() time.Time
	newID func() string
}

// Option configures attachment creation.
type Option func(*options)

// WithClock replaces time.Now for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDFunc replaces the identity generator.
func WithIDFunc(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FromReader reads r to completion and returns it as an attachment named
// name. The type comes from the name's extension, or from the content when
// the extension is unknown.
func FromReader(name string, r io.Reader, opts ...Option) (types.Attachment, error) {
	o := newOptions(opts)
	data, err := io.ReadAll(r)
	if err != nil {
		return types.Attachment{}, fmt.Errorf("reading %s: %w", name, err)
	}
	typ := DetectType(name, data)
	return types.Attachment{
		ID:        o.newID(),
		Name:      name,
		Type:      typ,
		Size:      int64(len(data)),
		DataURL:   encode(typ, data),
		CreatedAt: types.FormatTime(o.now()),
	}, nil
}

// FromFile reads the file at path as an attachment named after its base
// name.
func FromFile(path string, opts ...Option) (types.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Attachment{}, fmt.Errorf("opening attachment: %w", err)
	}
	defer f.Close()
	return FromReader(filepath.Base(path), f, opts...)
}

// FromFiles reads paths concurrently. Results keep the order of paths; the
// first failure cancels the remaining reads and is returned.
func FromFiles(ctx context.Context, paths []string, opts ...Option) ([]types.Attachment, error) {
	out := make([]types.Attachment, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := FromFile(p, opts...)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectType returns the media type for a file, without parameters.
// Unknown types are "".
func DetectType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

func encode(typ string, data []byte) string {
	if typ == "" {
		typ = defaultDataType
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode returns the bytes held in a's data URL.
func Decode(a types.Attachment) ([]byte, error) {
	rest, ok := strings.CutPrefix(a.DataURL, "data:")
	if !ok {
		return nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrNotDataURL
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", a.Name, err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", a.Name, err)
	}
	return []byte(text), nil
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
