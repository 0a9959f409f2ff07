// Package registry manages the source registry (sources.json): the ordered
// list of fetch targets the snapshot stage works through. The registry is
// derived data, regenerated from the entry store's citations.
package registry

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/jptext"
)

// Source type values, most authoritative first.
const (
	TypeOfficial  = "official"
	TypeFanWiki   = "fan-wiki"
	TypeSecondary = "secondary"
)

// Target is one fetchable source URL with its curation metadata.
type Target struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	URL        string   `json:"url"`
	SourceType string   `json:"sourceType"`
	Priority   int      `json:"priority"`
	Enabled    bool     `json:"enabled"`
	WorkRefs   []string `json:"workRefs"`
	EntryRefs  []string `json:"entryRefs"`
	Notes      string   `json:"notes"`
}

// File is the on-disk registry document.
type File struct {
	SchemaVersion int      `json:"schemaVersion"`
	UpdatedAt     string   `json:"updatedAt"`
	Items         []Target `json:"items"`
}

// Load reads sources.json.
func Load(path string) (File, error) {
	var f File
	if err := batch.ReadJSON(path, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

// Save writes sources.json.
func Save(path string, f File) error {
	return batch.WriteJSON(path, f)
}

// SortTargets orders targets in fetch order: ascending priority, ties by
// Japanese-collated id.
func SortTargets(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Priority != targets[j].Priority {
			return targets[i].Priority < targets[j].Priority
		}
		return jptext.Less(targets[i].ID, targets[j].ID)
	})
}

// Problem mirrors store.Problem for registry validation output.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string { return p.Path + ": " + p.Message }

func nonEmpty(s string) bool { return strings.TrimSpace(s) != "" }

// Validate checks the registry document and returns every problem found.
func Validate(f File) []Problem {
	var problems []Problem
	add := func(path, msg string) {
		problems = append(problems, Problem{Path: path, Message: msg})
	}

	if f.SchemaVersion <= 0 {
		add("schemaVersion", "must be a positive integer")
	}

	seenIDs := make(map[string]struct{}, len(f.Items))
	seenURLs := make(map[string]struct{}, len(f.Items))
	for i, item := range f.Items {
		label := fmt.Sprintf("items[%d]", i)

		switch {
		case !nonEmpty(item.ID):
			add(label+".id", "must be a non-empty string")
		default:
			if _, dup := seenIDs[item.ID]; dup {
				add(label+".id", "duplicate id: "+item.ID)
			} else {
				seenIDs[item.ID] = struct{}{}
			}
		}

		switch {
		case !nonEmpty(item.URL):
			add(label+".url", "must be a non-empty string")
		default:
			parsed, err := url.Parse(item.URL)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				add(label+".url", "must be an http(s) URL: "+item.URL)
			}
			if _, dup := seenURLs[item.URL]; dup {
				add(label+".url", "duplicate url: "+item.URL)
			} else {
				seenURLs[item.URL] = struct{}{}
			}
		}

		switch item.SourceType {
		case TypeOfficial, TypeFanWiki, TypeSecondary:
		default:
			add(label+".sourceType", "unknown sourceType: "+item.SourceType)
		}

		if item.Priority < 1 || item.Priority > 9 {
			add(label+".priority", fmt.Sprintf("must be in 1..9, got %d", item.Priority))
		}

		for j, work := range item.WorkRefs {
			if !nonEmpty(work) {
				add(fmt.Sprintf("%s.workRefs[%d]", label, j), "must be a non-empty string")
			}
		}
		for j, ref := range item.EntryRefs {
			if !nonEmpty(ref) {
				add(fmt.Sprintf("%s.entryRefs[%d]", label, j), "must be a non-empty string")
			}
		}
	}
	return problems
}

// ByID builds an id lookup over the registry items.
func (f File) ByID() map[string]Target {
	m := make(map[string]Target, len(f.Items))
	for _, item := range f.Items {
		m[item.ID] = item
	}
	return m
}
