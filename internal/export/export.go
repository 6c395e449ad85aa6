// Package export renders logs as portable documents: one markdown file per
// log, the whole collection as concatenated markdown, and the JSON array
// the importer reads back.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Separator joins documents in a concatenated markdown export.
const Separator = "\n\n<!-- logbook:next -->\n\n"

// EmptyBody stands in for a log without notes.
const EmptyBody = "_(No notes yet.)_"

// ToMarkdown renders l as a front-matter block followed by a heading,
// metadata lines and the body.
func ToMarkdown(l types.Log) string {
	created := canonicalTime(l.CreatedAt)
	tags := l.Tags

	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = quote(t)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "id: %s\n", quote(l.ID))
	fmt.Fprintf(&sb, "title: %s\n", quote(l.Title))
	fmt.Fprintf(&sb, "project: %s\n", quote(l.Project))
	fmt.Fprintf(&sb, "createdAt: %s\n", quote(created))
	fmt.Fprintf(&sb, "tags: [%s]\n", strings.Join(quoted, ", "))
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", l.Title)
	if l.Project != "" {
		fmt.Fprintf(&sb, "**Project:** %s\n", l.Project)
	}
	fmt.Fprintf(&sb, "**Created:** %s\n", created)
	if len(tags) > 0 {
		fmt.Fprintf(&sb, "**Tags:** %s\n", strings.Join(tags, ", "))
	}
	sb.WriteString("\n\n---\n\n")

	if body := strings.TrimSpace(l.Body); body != "" {
		sb.WriteString(body)
	} else {
		sb.WriteString(EmptyBody)
	}
	sb.WriteString("\n")
	return sb.String()
}

// ConcatMarkdown renders every log and joins the documents with Separator.
func ConcatMarkdown(logs []types.Log) string {
	docs := make([]string, len(logs))
	for i, l := range logs {
		docs[i] = ToMarkdown(l)
	}
	return strings.Join(docs, Separator)
}

// WriteJSON writes logs as an indented JSON array, the format Import reads.
func WriteJSON(w io.Writer, logs []types.Log) error {
	if logs == nil {
		logs = []types.Log{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(logs); err != nil {
		return fmt.Errorf("encoding logs: %w", err)
	}
	return nil
}

var (
	quotes      = regexp.MustCompile(`['"]`)
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify turns s into a lowercase, dash-separated file name stem of at
// most 80 bytes, falling back to "log".
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = quotes.ReplaceAllString(s, "")
	s = nonAlnumRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		return "log"
	}
	return s
}

// Filename returns the markdown file name for l: its creation date and
// slugified title.
func Filename(l types.Log) string {
	date := l.CreatedAt
	if len(date) > 10 {
		date = date[:10]
	}
	return date + "-" + Slugify(l.Title) + ".md"
}

// canonicalTime normalizes an ISO timestamp to UTC milliseconds. Values
// that do not parse are kept verbatim.
func canonicalTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return types.FormatTime(t)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
