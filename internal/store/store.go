// Package store reads, validates and appends to the canonical entry store
// (entries.json), the curated list of unresolved narrative elements the
// site renders. The automated pipeline only ever appends entries; edits to
// existing prose stay a human job.
package store

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lostspecs/curator/internal/batch"
)

// Source is one citation attached to an entry.
type Source struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Entry is the canonical curated record.
type Entry struct {
	ID              string   `json:"id"`
	Work            string   `json:"work"`
	Medium          string   `json:"medium"`
	ItemTitle       string   `json:"itemTitle"`
	Classification  string   `json:"classification"`
	Status          string   `json:"status"`
	Tags            []string `json:"tags"`
	FirstAppearance string   `json:"firstAppearance"`
	FactShown       string   `json:"factShown"`
	FactAfter       string   `json:"factAfter"`
	Evaluation      string   `json:"evaluation"`
	Note            string   `json:"note"`
	Sources         []Source `json:"sources"`
}

// Load reads the entry store file.
func Load(path string) ([]Entry, error) {
	var entries []Entry
	if err := batch.ReadJSON(path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save rewrites the entry store file.
func Save(path string, entries []Entry) error {
	return batch.WriteJSON(path, entries)
}

// Append adds drafts to the store on disk. This is the only mutation the
// automated path performs.
func Append(path string, drafts []Entry) error {
	entries, err := Load(path)
	if err != nil {
		return err
	}
	entries = append(entries, drafts...)
	return Save(path, entries)
}

// Problem describes a single field-level validation failure.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string { return p.Path + ": " + p.Message }

func nonEmpty(s string) bool { return strings.TrimSpace(s) != "" }

// Validate checks every entry and returns all problems found, so one pass
// surfaces every issue instead of failing on the first.
func Validate(entries []Entry) []Problem {
	var problems []Problem
	add := func(path, msg string) {
		problems = append(problems, Problem{Path: path, Message: msg})
	}

	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		label := fmt.Sprintf("entries[%d]", i)

		switch {
		case !nonEmpty(entry.ID):
			add(label+".id", "must be a non-empty string")
		default:
			if _, dup := seen[entry.ID]; dup {
				add(label+".id", "duplicate id: "+entry.ID)
			} else {
				seen[entry.ID] = struct{}{}
			}
		}

		for field, value := range map[string]string{
			"work":            entry.Work,
			"medium":          entry.Medium,
			"itemTitle":       entry.ItemTitle,
			"classification":  entry.Classification,
			"status":          entry.Status,
			"firstAppearance": entry.FirstAppearance,
			"factShown":       entry.FactShown,
			"factAfter":       entry.FactAfter,
			"evaluation":      entry.Evaluation,
			"note":            entry.Note,
		} {
			if !nonEmpty(value) {
				add(label+"."+field, "must be a non-empty string")
			}
		}

		if len(entry.Tags) == 0 {
			add(label+".tags", "must contain at least one tag")
		}
		for j, tag := range entry.Tags {
			if !nonEmpty(tag) {
				add(fmt.Sprintf("%s.tags[%d]", label, j), "must be a non-empty string")
			}
		}

		if len(entry.Sources) == 0 {
			add(label+".sources", "must contain at least one source")
		}
		for j, src := range entry.Sources {
			srcLabel := fmt.Sprintf("%s.sources[%d]", label, j)
			if !nonEmpty(src.Label) {
				add(srcLabel+".label", "must be a non-empty string")
			}
			if !nonEmpty(src.URL) {
				add(srcLabel+".url", "must be a non-empty string")
			} else if _, err := url.ParseRequestURI(src.URL); err != nil {
				add(srcLabel+".url", "invalid URL: "+src.URL)
			}
		}
	}
	return problems
}

// Index holds the cross-reference lookups the candidate and publish stages
// need over a store snapshot.
type Index struct {
	ByID       map[string]Entry
	ByWork     map[string][]Entry
	SourceURLs map[string]struct{}
}

// NewIndex builds the lookups in one pass.
func NewIndex(entries []Entry) *Index {
	idx := &Index{
		ByID:       make(map[string]Entry, len(entries)),
		ByWork:     make(map[string][]Entry),
		SourceURLs: make(map[string]struct{}),
	}
	for _, entry := range entries {
		idx.ByID[entry.ID] = entry
		idx.ByWork[entry.Work] = append(idx.ByWork[entry.Work], entry)
		for _, src := range entry.Sources {
			if src.URL != "" {
				idx.SourceURLs[src.URL] = struct{}{}
			}
		}
	}
	return idx
}

// SourceURLUsed reports whether any entry already cites rawURL.
func (idx *Index) SourceURLUsed(rawURL string) bool {
	_, ok := idx.SourceURLs[rawURL]
	return ok
}
