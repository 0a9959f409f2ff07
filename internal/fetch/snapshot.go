// Package fetch executes the snapshot stage: one polite HTTP GET per
// allowed registry target, written into an immutable batch directory.
package fetch

import (
	"github.com/lostspecs/curator/internal/policy"
)

// Snapshot is the raw captured result of one fetch attempt against one
// source. It is written once and never mutated.
type Snapshot struct {
	SourceID    string           `json:"sourceId"`
	URL         string           `json:"url"`
	FetchedAt   string           `json:"fetchedAt"`
	StartedAt   string           `json:"startedAt"`
	OK          bool             `json:"ok"`
	Skipped     bool             `json:"skipped,omitempty"`
	Status      *int             `json:"status"`
	ContentType string           `json:"contentType,omitempty"`
	FinalURL    string           `json:"finalUrl,omitempty"`
	Body        *string          `json:"body"`
	Error       string           `json:"error,omitempty"`
	Policy      *policy.Decision `json:"policy,omitempty"`
}

// ManifestItem records one processed target in the batch manifest.
type ManifestItem struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PolicySnapshot echoes the policy configuration a batch was fetched
// under, so audits never have to re-derive it from individual records.
type PolicySnapshot struct {
	UserAgent         string   `json:"userAgent"`
	RespectRobotsTxt  bool     `json:"respectRobotsTxt"`
	RespectCrawlDelay bool     `json:"respectCrawlDelay"`
	AllowDomains      []string `json:"allowDomains"`
	DenyDomains       []string `json:"denyDomains"`
	DefaultDelayMs    int      `json:"defaultDelayMs"`
	RequestTimeoutMs  int      `json:"requestTimeoutMs"`
	MaxBodyChars      int      `json:"maxBodyChars"`
}

// Manifest summarizes one snapshot batch.
type Manifest struct {
	RunID     string         `json:"runId"`
	CreatedAt string         `json:"createdAt"`
	Total     int            `json:"total"`
	Success   int            `json:"success"`
	Failure   int            `json:"failure"`
	Skipped   int            `json:"skipped"`
	Policy    PolicySnapshot `json:"policy"`
	Items     []ManifestItem `json:"items"`
}
