package logstore

import (
	"slices"
	"strings"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// UnassignedProject names the group of logs without a project.
const UnassignedProject = "Unassigned"

// ProjectLog is the short form of a log listed under a project.
type ProjectLog struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// ProjectSummary groups the logs of one project.
type ProjectSummary struct {
	Name   string       `json:"name"`
	Count  int          `json:"count"`
	Latest string       `json:"latest"`
	Tags   []string     `json:"tags"`
	Logs   []ProjectLog `json:"logs"`
}

// Projects groups logs by trimmed project name, with empty projects under
// UnassignedProject. Member logs keep the order of the input; summaries are
// ordered by their latest createdAt, newest first.
func Projects(logs []types.Log) []ProjectSummary {
	index := make(map[string]int)
	var out []ProjectSummary
	seenTags := make(map[string]map[string]bool)

	for _, l := range logs {
		name := strings.TrimSpace(l.Project)
		if name == "" {
			name = UnassignedProject
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, ProjectSummary{Name: name, Tags: []string{}})
			seenTags[name] = make(map[string]bool)
		}
		p := &out[i]
		p.Count++
		if l.CreatedAt > p.Latest {
			p.Latest = l.CreatedAt
		}
		p.Logs = append(p.Logs, ProjectLog{ID: l.ID, Title: l.Title, CreatedAt: l.CreatedAt})
		for _, tag := range l.Tags {
			if !seenTags[name][tag] {
				seenTags[name][tag] = true
				p.Tags = append(p.Tags, tag)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b ProjectSummary) int {
		return strings.Compare(b.Latest, a.Latest)
	})
	return out
}

// TagOptions returns every distinct tag, sorted.
func TagOptions(logs []types.Log) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, l := range logs {
		for _, tag := range l.Tags {
			if tag != "" && !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	slices.Sort(tags)
	return tags
}

// Query narrows a log list. Zero fields match everything.
type Query struct {
	Project string // Exact project name; UnassignedProject matches logs without one.
	Tag     string // Exact tag.
	Text    string // Case-insensitive substring of title, body, project or tags.
}

// Filter returns the logs matching q, preserving order.
func Filter(logs []types.Log, q Query) []types.Log {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := []types.Log{}
	for _, l := range logs {
		if q.Project != "" && !matchProject(l, q.Project) {
			continue
		}
		if q.Tag != "" && !slices.Contains(l.Tags, q.Tag) {
			continue
		}
		if text != "" && !matchText(l, text) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func matchProject(l types.Log, project string) bool {
	name := strings.TrimSpace(l.Project)
	if project == UnassignedProject {
		return name == ""
	}
	return name == project
}

func matchText(l types.Log, text string) bool {
	fields := append([]string{l.Title, l.Body, l.Project}, l.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}
