package candidate

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/extract"
	"github.com/lostspecs/curator/internal/jptext"
	"github.com/lostspecs/curator/internal/registry"
	"github.com/lostspecs/curator/internal/store"
)

// QueueItem is one row of the candidate review queue, best-first.
type QueueItem struct {
	CandidateID      string           `json:"candidateId"`
	SourceID         string           `json:"sourceId"`
	SourceURL        string           `json:"sourceUrl"`
	Title            string           `json:"title"`
	Decision         extract.Decision `json:"decision"`
	Confidence       int              `json:"confidence"`
	CandidateType    string           `json:"candidateType"`
	AutoEligible     bool             `json:"autoEligible"`
	DuplicateSignals DuplicateSignals `json:"duplicateSignals"`
	WorkRefs         []string         `json:"workRefs"`
	EntryRefs        []string         `json:"entryRefs"`
	ReviewReasons    []string         `json:"reviewReasons"`
}

// Summary is the candidate batch summary.
type Summary struct {
	Batch               string `json:"batch"`
	GeneratedAt         string `json:"generatedAt"`
	Total               int    `json:"total"`
	CandidateReadyCount int    `json:"candidateReadyCount"`
	NeedsReviewCount    int    `json:"needsReviewCount"`
	HoldCount           int    `json:"holdCount"`
	AutoEligibleCount   int    `json:"autoEligibleCount"`
	EvidenceUpdateCount int    `json:"evidenceUpdateCount"`
	NewEntryCount       int    `json:"newEntryCount"`
}

// LatestPointer marks the most recent candidate batch for consumers that
// do not want to scan the directory tree.
type LatestPointer struct {
	Batch   string  `json:"batch"`
	Path    string  `json:"path"`
	Summary Summary `json:"summary"`
}

// Result reports what a candidate run produced.
type Result struct {
	Batch   batch.ID
	Dir     string
	Summary Summary
}

// Run reads an extraction batch and writes the candidate batch keyed to
// it: candidates.json, the review queue and the summary.
func Run(layout batch.Layout, id batch.ID, cfg config.Config, logger *zap.Logger) (*Result, error) {
	inDir := filepath.Join(layout.ExtractedRoot(), id.String())
	outDir := filepath.Join(layout.CandidatesRoot(), id.String())

	files, err := batch.DataFiles(inDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no extraction records in %s", inDir)
	}

	entries, err := store.Load(layout.EntriesPath())
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(layout.SourcesPath())
	if err != nil {
		return nil, err
	}

	builder := NewBuilder(entries, reg, cfg.Scoring.Thresholds)
	var candidates []Candidate
	for _, name := range files {
		var rec extract.Record
		if err := batch.ReadJSON(filepath.Join(inDir, name), &rec); err != nil {
			return nil, err
		}
		candidates = append(candidates, builder.Build(rec, id))
	}

	queue := reviewQueue(candidates)
	summary := summarize(id, candidates)

	if err := batch.WriteJSON(filepath.Join(outDir, "candidates.json"), candidates); err != nil {
		return nil, err
	}
	if err := batch.WriteJSON(filepath.Join(outDir, "_review-queue.json"), queue); err != nil {
		return nil, err
	}
	if err := batch.WriteJSON(filepath.Join(outDir, "_summary.json"), summary); err != nil {
		return nil, err
	}
	latest := LatestPointer{
		Batch:   id.String(),
		Path:    "data/candidates/" + id.String(),
		Summary: summary,
	}
	if err := batch.WriteJSON(filepath.Join(layout.CandidatesRoot(), "_latest.json"), latest); err != nil {
		return nil, err
	}

	logger.Info("candidates built",
		zap.String("batch", id.String()),
		zap.Int("total", summary.Total),
		zap.Int("ready", summary.CandidateReadyCount),
		zap.Int("needsReview", summary.NeedsReviewCount),
		zap.Int("hold", summary.HoldCount))
	return &Result{Batch: id, Dir: outDir, Summary: summary}, nil
}

func tierRank(key string) int {
	switch key {
	case extract.DecisionCandidateReady.Key:
		return 0
	case extract.DecisionNeedsReview.Key:
		return 1
	default:
		return 2
	}
}

// reviewQueue orders candidates ready-first, then by descending
// confidence, then by collated candidate id.
func reviewQueue(candidates []Candidate) []QueueItem {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := tierRank(sorted[i].Decision.Key), tierRank(sorted[j].Decision.Key)
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return jptext.Less(sorted[i].CandidateID, sorted[j].CandidateID)
	})

	queue := make([]QueueItem, 0, len(sorted))
	for _, c := range sorted {
		queue = append(queue, QueueItem{
			CandidateID:      c.CandidateID,
			SourceID:         c.SourceID,
			SourceURL:        c.SourceURL,
			Title:            c.SuggestedEntry.ItemTitle,
			Decision:         c.Decision,
			Confidence:       c.Confidence,
			CandidateType:    c.CandidateType,
			AutoEligible:     c.AutoEligible,
			DuplicateSignals: c.DuplicateSignals,
			WorkRefs:         c.WorkRefs,
			EntryRefs:        c.EntryRefs,
			ReviewReasons:    c.ReviewReasons,
		})
	}
	return queue
}

func summarize(id batch.ID, candidates []Candidate) Summary {
	summary := Summary{
		Batch:       id.String(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Total:       len(candidates),
	}
	for _, c := range candidates {
		switch c.Decision.Key {
		case extract.DecisionCandidateReady.Key:
			summary.CandidateReadyCount++
		case extract.DecisionNeedsReview.Key:
			summary.NeedsReviewCount++
		default:
			summary.HoldCount++
		}
		if c.AutoEligible {
			summary.AutoEligibleCount++
		}
		switch c.CandidateType {
		case TypeEvidenceUpdate:
			summary.EvidenceUpdateCount++
		case TypeNewEntry:
			summary.NewEntryCount++
		}
	}
	return summary
}
