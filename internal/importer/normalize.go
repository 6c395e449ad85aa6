package importer

import (
	"math"
	"strings"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Normalize turns untrusted candidates into well-formed logs. Candidates
// that are not objects or lack a non-empty string title are dropped and
// counted. now stamps records without a createdAt string; newID supplies
// identities for records without a usable id.
func Normalize(candidates []any, now string, newID func() string) ([]types.Log, int) {
	logs := make([]types.Log, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		l, ok := normalizeLog(c, now, newID)
		if !ok {
			dropped++
			continue
		}
		logs = append(logs, l)
	}
	return logs, dropped
}

func normalizeLog(c any, now string, newID func() string) (types.Log, bool) {
	obj, ok := c.(map[string]any)
	if !ok {
		return types.Log{}, false
	}
	title, ok := obj["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return types.Log{}, false
	}

	l := types.Log{
		ID:        stringOr(obj["id"], ""),
		Title:     title,
		Project:   stringOr(obj["project"], ""),
		Tags:      normalizeTags(obj["tags"]),
		Body:      stringOr(obj["body"], ""),
		CreatedAt: stringOr(obj["createdAt"], now),
	}
	if strings.TrimSpace(l.ID) == "" {
		l.ID = newID()
	}
	if raw, ok := obj["attachments"].([]any); ok {
		l.Attachments = normalizeAttachments(raw, now)
	}
	return l, true
}

// normalizeTags keeps the non-empty strings of an array. Anything else
// yields no tags.
func normalizeTags(v any) []string {
	tags := []string{}
	raw, ok := v.([]any)
	if !ok {
		return tags
	}
	for _, t := range raw {
		if s, ok := t.(string); ok && s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}

func normalizeAttachments(raw []any, now string) []types.Attachment {
	out := make([]types.Attachment, 0, len(raw))
	for _, r := range raw {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id, okID := obj["id"].(string)
		name, okName := obj["name"].(string)
		data, okData := obj["dataUrl"].(string)
		if !okID || !okName || !okData {
			continue
		}
		out = append(out, types.Attachment{
			ID:        id,
			Name:      name,
			Type:      stringOr(obj["type"], ""),
			Size:      sizeOf(obj["size"]),
			DataURL:   data,
			CreatedAt: stringOr(obj["createdAt"], now),
		})
	}
	return out
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func sizeOf(v any) int64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
