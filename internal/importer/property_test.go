package importer

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// logsGenerator draws logs with IDs from a small pool so collisions are common.
func logsGenerator() *rapid.Generator[[]types.Log] {
	return rapid.Custom(func(t *rapid.T) []types.Log {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		logs := make([]types.Log, 0, n)
		seen := make(map[string]bool)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("id-%d", rapid.IntRange(0, 10).Draw(t, "id"))
			if seen[id] {
				continue
			}
			seen[id] = true
			logs = append(logs, types.Log{
				ID:        id,
				Title:     rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "title"),
				Tags:      []string{},
				CreatedAt: fmt.Sprintf("2025-01-0%dT00:00:00.000Z", rapid.IntRange(1, 3).Draw(t, "day")),
			})
		}
		return logs
	})
}

func TestPropertyMergeIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		existing := logsGenerator().Draw(t, "existing")
		imported := logsGenerator().Draw(t, "imported")
		once := Merge(existing, imported)
		twice := Merge(once, imported)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("merge not idempotent:\n%s", diff)
		}
	})
}

func TestPropertyMergeOverride(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		existing := logsGenerator().Draw(t, "existing")
		imported := logsGenerator().Draw(t, "imported")
		merged := Merge(existing, imported)

		byID := make(map[string]types.Log)
		for _, l := range merged {
			if _, dup := byID[l.ID]; dup {
				t.Fatalf("duplicate id %s after merge", l.ID)
			}
			byID[l.ID] = l
		}
		for _, l := range imported {
			if !cmp.Equal(byID[l.ID], l) {
				t.Fatalf("imported %s not kept verbatim", l.ID)
			}
		}
		for _, l := range existing {
			if _, ok := byID[l.ID]; !ok {
				t.Fatalf("existing %s lost", l.ID)
			}
		}
	})
}
