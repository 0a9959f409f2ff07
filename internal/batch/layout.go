package batch

import (
	"path/filepath"
	"regexp"
)

// Layout resolves every well-known path of a curation workspace relative to
// its base directory (the repo checkout the daily automation runs in).
type Layout struct {
	Base string
}

// NewLayout returns a layout rooted at base, defaulting to the current
// directory.
func NewLayout(base string) Layout {
	if base == "" {
		base = "."
	}
	return Layout{Base: base}
}

func (l Layout) EntriesPath() string { return filepath.Join(l.Base, "entries.json") }
func (l Layout) SourcesPath() string { return filepath.Join(l.Base, "sources.json") }
func (l Layout) ConfigPath() string  { return filepath.Join(l.Base, "automation.config.json") }

func (l Layout) StatusPath() string     { return filepath.Join(l.Base, "automation-status.json") }
func (l Layout) ReviewFeedPath() string { return filepath.Join(l.Base, "automation-review-feed.json") }
func (l Layout) AppPath() string        { return filepath.Join(l.Base, "app.js") }

// Stage roots, one batch directory tree per pipeline stage.
func (l Layout) SnapshotsRoot() string  { return filepath.Join(l.Base, "data", "snapshots") }
func (l Layout) ExtractedRoot() string  { return filepath.Join(l.Base, "data", "extracted") }
func (l Layout) CandidatesRoot() string { return filepath.Join(l.Base, "data", "candidates") }
func (l Layout) PublisherRoot() string  { return filepath.Join(l.Base, "data", "publisher") }

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFileName replaces characters that are unsafe in batch record file
// names, mirroring how source ids become snapshot files.
func SafeFileName(value string) string {
	return unsafeFileChars.ReplaceAllString(value, "_")
}
