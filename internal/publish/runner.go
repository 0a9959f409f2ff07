package publish

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/candidate"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/store"
)

// Summary is the publisher batch summary.
type Summary struct {
	Batch            string         `json:"batch"`
	GeneratedAt      string         `json:"generatedAt"`
	RequestedApply   bool           `json:"requestedApply"`
	AutoApplyEnabled bool           `json:"autoApplyEnabled"`
	TotalCandidates  int            `json:"totalCandidates"`
	PublishableCount int            `json:"publishableCount"`
	AppliedCount     int            `json:"appliedCount"`
	RejectedCount    int            `json:"rejectedCount"`
	ReasonsHistogram map[string]int `json:"reasonsHistogram"`
}

// LatestPointer marks the most recent publisher batch.
type LatestPointer struct {
	Batch   string  `json:"batch"`
	Path    string  `json:"path"`
	Summary Summary `json:"summary"`
}

// Result reports what a publish run produced.
type Result struct {
	Batch   batch.ID
	Dir     string
	Summary Summary
}

// Run evaluates the candidate batch and writes the publisher reports.
// Accepted drafts are appended to the entry store only when apply is true;
// without it the run is a plan and never mutates the store.
func Run(layout batch.Layout, id batch.ID, cfg config.Config, apply bool, logger *zap.Logger) (*Result, error) {
	candidatesPath := filepath.Join(layout.CandidatesRoot(), id.String(), "candidates.json")
	var candidates []candidate.Candidate
	if err := batch.ReadJSON(candidatesPath, &candidates); err != nil {
		return nil, fmt.Errorf("load candidate batch: %w", err)
	}

	entries, err := store.Load(layout.EntriesPath())
	if err != nil {
		return nil, err
	}

	outcome := Evaluate(candidates, entries, cfg.Publisher)

	appliedCount := 0
	if apply && len(outcome.Accepted) > 0 {
		drafts := make([]store.Entry, 0, len(outcome.Accepted))
		for _, accepted := range outcome.Accepted {
			drafts = append(drafts, accepted.Entry)
		}
		if err := store.Append(layout.EntriesPath(), drafts); err != nil {
			return nil, err
		}
		appliedCount = len(drafts)
	}

	summary := Summary{
		Batch:            id.String(),
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		RequestedApply:   apply,
		AutoApplyEnabled: cfg.Publisher.AutoApplyEnabled,
		TotalCandidates:  len(candidates),
		PublishableCount: len(outcome.Accepted),
		AppliedCount:     appliedCount,
		RejectedCount:    len(candidates) - len(outcome.Accepted),
		ReasonsHistogram: outcome.Histogram,
	}

	outDir := filepath.Join(layout.PublisherRoot(), id.String())
	if err := batch.WriteJSON(filepath.Join(outDir, "evaluated-candidates.json"), outcome.Evaluated); err != nil {
		return nil, err
	}
	if err := batch.WriteJSON(filepath.Join(outDir, "_summary.json"), summary); err != nil {
		return nil, err
	}
	latest := LatestPointer{
		Batch:   id.String(),
		Path:    "data/publisher/" + id.String(),
		Summary: summary,
	}
	if err := batch.WriteJSON(filepath.Join(layout.PublisherRoot(), "_latest.json"), latest); err != nil {
		return nil, err
	}

	logger.Info("publish gate finished",
		zap.String("batch", id.String()),
		zap.Int("total", summary.TotalCandidates),
		zap.Int("publishable", summary.PublishableCount),
		zap.Int("applied", summary.AppliedCount))
	return &Result{Batch: id, Dir: outDir, Summary: summary}, nil
}
