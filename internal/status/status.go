// Package status publishes the machine-readable automation status and
// review feed that the browsing site (and curators) read, and can serve
// them locally for review.
package status

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/candidate"
	"github.com/lostspecs/curator/internal/config"
)

const reviewFeedLimit = 50

// Site is the version metadata scraped from the site bundle, when present.
type Site struct {
	Version   *string `json:"version"`
	UpdatedAt *string `json:"updatedAt"`
}

// StageStatus pairs a stage's latest batch with its summary document.
type StageStatus struct {
	Batch   *string         `json:"batch"`
	Summary json.RawMessage `json:"summary"`
}

// Document is automation-status.json.
type Document struct {
	GeneratedAt string            `json:"generatedAt"`
	Site        Site              `json:"site"`
	Deployment  config.Deployment `json:"deployment"`
	Schedule    config.Schedule   `json:"schedule"`
	Scoring     config.Scoring    `json:"scoring"`
	Latest      Latest            `json:"latest"`
}

// Latest aggregates the newest batch of every reporting stage.
type Latest struct {
	Extracted  StageStatus `json:"extracted"`
	Candidates StageStatus `json:"candidates"`
	Publisher  StageStatus `json:"publisher"`
}

// ReviewFeed is automation-review-feed.json: the head of the latest
// candidate review queue.
type ReviewFeed struct {
	GeneratedAt string                `json:"generatedAt"`
	Batch       *string               `json:"batch"`
	Total       int                   `json:"total"`
	Items       []candidate.QueueItem `json:"items"`
}

var (
	versionPattern   = regexp.MustCompile(`\bversion:\s*"(\d+\.\d+\.\d+)"`)
	updatedAtPattern = regexp.MustCompile(`\bupdatedAt:\s*"(\d{4}-\d{2}-\d{2})"`)
)

// readSite scrapes the site version block from the app bundle; absence is
// fine and yields nulls.
func readSite(appPath string) Site {
	raw, err := os.ReadFile(appPath)
	if err != nil {
		return Site{}
	}
	var site Site
	if m := versionPattern.FindSubmatch(raw); m != nil {
		v := string(m[1])
		site.Version = &v
	}
	if m := updatedAtPattern.FindSubmatch(raw); m != nil {
		v := string(m[1])
		site.UpdatedAt = &v
	}
	return site
}

func stageStatus(root string) StageStatus {
	id, ok, err := batch.Latest(root)
	if err != nil || !ok {
		return StageStatus{}
	}
	name := id.String()
	status := StageStatus{Batch: &name}
	raw, err := os.ReadFile(filepath.Join(root, name, "_summary.json"))
	if err == nil && json.Valid(raw) {
		status.Summary = json.RawMessage(raw)
	}
	return status
}

// Write regenerates both status files from the latest batches.
func Write(layout batch.Layout, cfg config.Config, logger *zap.Logger) error {
	now := time.Now().UTC().Format(time.RFC3339)

	doc := Document{
		GeneratedAt: now,
		Site:        readSite(layout.AppPath()),
		Deployment:  cfg.Deployment,
		Schedule:    cfg.Schedule,
		Scoring:     cfg.Scoring,
		Latest: Latest{
			Extracted:  stageStatus(layout.ExtractedRoot()),
			Candidates: stageStatus(layout.CandidatesRoot()),
			Publisher:  stageStatus(layout.PublisherRoot()),
		},
	}
	if err := batch.WriteJSON(layout.StatusPath(), doc); err != nil {
		return err
	}

	feed := ReviewFeed{GeneratedAt: now, Items: []candidate.QueueItem{}}
	if doc.Latest.Candidates.Batch != nil {
		name := *doc.Latest.Candidates.Batch
		feed.Batch = &name
		queuePath := filepath.Join(layout.CandidatesRoot(), name, "_review-queue.json")
		var queue []candidate.QueueItem
		if err := batch.ReadJSON(queuePath, &queue); err == nil {
			feed.Total = len(queue)
			if len(queue) > reviewFeedLimit {
				queue = queue[:reviewFeedLimit]
			}
			feed.Items = queue
		}
	}
	if err := batch.WriteJSON(layout.ReviewFeedPath(), feed); err != nil {
		return err
	}

	logger.Info("status published",
		zap.String("status", layout.StatusPath()),
		zap.String("reviewFeed", layout.ReviewFeedPath()),
		zap.Int("feedItems", len(feed.Items)))
	return nil
}
