package types

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// TimeLayout is the fixed-width UTC layout used for every timestamp the
// logbook generates. Lexicographic order of formatted values equals
// chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime formats t with TimeLayout in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Log is one logbook entry.
type Log struct {
	ID          string       `json:"id"`                    // Generated on creation, immutable.
	Title       string       `json:"title"`                 // Required, non-empty.
	Project     string       `json:"project,omitempty"`     // Empty means unassigned.
	Tags        []string     `json:"tags"`                  // Insertion order, duplicates allowed.
	Body        string       `json:"body"`                  // Markdown, may be empty.
	Attachments []Attachment `json:"attachments,omitempty"` // Ordered; removed by ID.
	CreatedAt   string       `json:"createdAt"`             // ISO-8601, set once.
}

// Attachment is an immutable binary blob carried inside a Log.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"` // MIME type, may be empty.
	Size      int64  `json:"size"`
	DataURL   string `json:"dataUrl"` // Self-contained base64 data URI.
	CreatedAt string `json:"createdAt"`
}

// Validation errors for user-supplied fields.
var (
	ErrTitleRequired = errors.New("title is required")
)

// Fields are the caller-supplied fields of a new Log. The store assigns
// the ID and CreatedAt.
type Fields struct {
	Title       string       `json:"title"`
	Project     string       `json:"project,omitempty"`
	Tags        []string     `json:"tags"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Validate rejects fields that must never reach the store.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched. ID and
// CreatedAt cannot be expressed, so an update can never change them.
type Patch struct {
	Title       *string       `json:"title,omitempty"`
	Project     *string       `json:"project,omitempty"`
	Tags        *[]string     `json:"tags,omitempty"`
	Body        *string       `json:"body,omitempty"`
	Attachments *[]Attachment `json:"attachments,omitempty"`
}

// Validate rejects a patch that would blank the title.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Project == nil && p.Tags == nil && p.Body == nil && p.Attachments == nil
}

// Apply returns a copy of l with the patch applied.
func (p Patch) Apply(l Log) Log {
	out := l.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Project != nil {
		out.Project = *p.Project
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(*p.Tags)
		if out.Tags == nil {
			out.Tags = []string{}
		}
	}
	if p.Body != nil {
		out.Body = *p.Body
	}
	if p.Attachments != nil {
		out.Attachments = slices.Clone(*p.Attachments)
	}
	return out
}

// NewLog builds a Log from fields. Nil tags become an empty slice so the
// JSON form always carries an array.
func NewLog(id, createdAt string, f Fields) Log {
	tags := slices.Clone(f.Tags)
	if tags == nil {
		tags = []string{}
	}
	return Log{
		ID:          id,
		Title:       f.Title,
		Project:     f.Project,
		Tags:        tags,
		Body:        f.Body,
		Attachments: slices.Clone(f.Attachments),
		CreatedAt:   createdAt,
	}
}

// Clone returns a deep copy of l.
func (l Log) Clone() Log {
	out := l
	out.Tags = slices.Clone(l.Tags)
	if l.Tags != nil && out.Tags == nil {
		out.Tags = []string{}
	}
	out.Attachments = slices.Clone(l.Attachments)
	return out
}

// ParseTags splits comma-separated tag text, trims each tag and drops
// empty ones. Order and duplicates are preserved.
func ParseTags(text string) []string {
	tags := []string{}
	for part := range strings.SplitSeq(text, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// RemoveAttachment returns attachments without the one identified by id.
func RemoveAttachment(attachments []Attachment, id string) []Attachment {
	out := make([]Attachment, 0, len(attachments))
	for _, a := range attachments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// SortLogs orders logs newest first by CreatedAt string comparison. The
// sort is stable, so equal timestamps keep their stored order.
func SortLogs(logs []Log) {
	slices.SortStableFunc(logs, func(a, b Log) int {
		return strings.Compare(b.CreatedAt, a.CreatedAt)
	})
}
