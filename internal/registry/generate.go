package registry

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lostspecs/curator/internal/jptext"
	"github.com/lostspecs/curator/internal/store"
)

// Hosts that identify publisher-operated sources. Anything else that looks
// like a community wiki ranks second, the rest is secondary material.
var (
	officialHostMarkers = []string{"pokemon.co.jp", "digimon.net", "shonenjump"}
	fanWikiHostMarkers  = []string{"bulbapedia", "wikimon", "jojowiki.com", "fandom.com"}
)

func classifyURL(rawURL string) (sourceType string, priority int) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return TypeSecondary, 3
	}
	host := strings.ToLower(parsed.Hostname())
	for _, marker := range officialHostMarkers {
		if strings.Contains(host, marker) {
			return TypeOfficial, 1
		}
	}
	for _, marker := range fanWikiHostMarkers {
		if strings.Contains(host, marker) {
			return TypeFanWiki, 2
		}
	}
	return TypeSecondary, 3
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugifyURL(rawURL string) string {
	s := strings.ToLower(rawURL)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// Generate derives the registry from the entry store's citations: one
// target per distinct URL, accumulating the works and entries that cite it.
// The most authoritative classification seen for a URL wins.
func Generate(entries []store.Entry, now time.Time) File {
	type accum struct {
		target   Target
		workRefs map[string]struct{}
		entryRef map[string]struct{}
	}
	byURL := make(map[string]*accum)

	for _, entry := range entries {
		for _, src := range entry.Sources {
			if src.URL == "" {
				continue
			}
			acc, ok := byURL[src.URL]
			if !ok {
				label := src.Label
				if label == "" {
					label = src.URL
				}
				acc = &accum{
					target: Target{
						ID:         "src-" + slugifyURL(src.URL),
						Label:      label,
						URL:        src.URL,
						SourceType: TypeSecondary,
						Priority:   3,
						Enabled:    true,
					},
					workRefs: make(map[string]struct{}),
					entryRef: make(map[string]struct{}),
				}
				byURL[src.URL] = acc
			}
			acc.workRefs[entry.Work] = struct{}{}
			acc.entryRef[entry.ID] = struct{}{}

			if sourceType, priority := classifyURL(src.URL); priority < acc.target.Priority {
				acc.target.Priority = priority
				acc.target.SourceType = sourceType
			}
		}
	}

	items := make([]Target, 0, len(byURL))
	for _, acc := range byURL {
		acc.target.WorkRefs = sortedKeys(acc.workRefs)
		acc.target.EntryRefs = sortedKeys(acc.entryRef)
		items = append(items, acc.target)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return jptext.Less(items[i].ID, items[j].ID)
	})

	return File{
		SchemaVersion: 1,
		UpdatedAt:     now.Format("2006-01-02"),
		Items:         items,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
