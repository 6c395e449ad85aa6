package types

import (
	"slices"
	"strings"
)

// DraftFields mirror the editable value of the creation form. Tags are
// kept as the raw comma-separated text the user typed.
type DraftFields struct {
	Title       string       `json:"title"`
	Project     string       `json:"project"`
	TagsText    string       `json:"tagsText"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
}

// Draft is the single autosaved, uncommitted entry.
type Draft struct {
	DraftFields
	SavedAt string `json:"savedAt,omitempty"`
}

// Fields converts the draft value into Log fields: title, project and body
// are trimmed and the tag text is parsed.
func (d DraftFields) Fields() Fields {
	return Fields{
		Title:       strings.TrimSpace(d.Title),
		Project:     strings.TrimSpace(d.Project),
		Tags:        ParseTags(d.TagsText),
		Body:        strings.TrimSpace(d.Body),
		Attachments: slices.Clone(d.Attachments),
	}
}
