package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/fetch"
	"github.com/lostspecs/curator/internal/jptext"
)

// QueueItem is one row of the human review queue, ordered worst-first so
// triage starts with the extractions that need the most attention.
type QueueItem struct {
	SourceID      string   `json:"sourceId"`
	URL           string   `json:"url"`
	Confidence    int      `json:"confidence"`
	ReviewReasons []string `json:"reviewReasons"`
	Title         string   `json:"title"`
}

// Summary is the batch-level machine-readable summary.
type Summary struct {
	Batch              string `json:"batch"`
	Processed          int    `json:"processed"`
	LowConfidenceCount int    `json:"lowConfidenceCount"`
	GeneratedAt        string `json:"generatedAt"`
}

// Result reports what an extraction run produced.
type Result struct {
	Batch   batch.ID
	Dir     string
	Summary Summary
}

// Run reads a snapshot batch and writes the 1:1 extraction batch under
// outRoot, plus the review queue and summary files.
func Run(layout batch.Layout, id batch.ID, scoring config.Scoring, logger *zap.Logger) (*Result, error) {
	inDir := filepath.Join(layout.SnapshotsRoot(), id.String())
	outDir := filepath.Join(layout.ExtractedRoot(), id.String())

	files, err := batch.DataFiles(inDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no snapshot records in %s", inDir)
	}

	var queue []QueueItem
	for _, name := range files {
		var snap fetch.Snapshot
		if err := batch.ReadJSON(filepath.Join(inDir, name), &snap); err != nil {
			return nil, err
		}
		record := FromSnapshot(snap, scoring.Thresholds)
		if err := batch.WriteJSON(filepath.Join(outDir, name), record); err != nil {
			return nil, err
		}
		queue = append(queue, QueueItem{
			SourceID:      record.SourceID,
			URL:           record.URL,
			Confidence:    record.Confidence,
			ReviewReasons: record.ReviewReasons,
			Title: firstNonEmpty(
				record.Extracted.Title,
				record.Extracted.OgTitle,
				record.Extracted.H1,
			),
		})
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Confidence != queue[j].Confidence {
			return queue[i].Confidence < queue[j].Confidence
		}
		return jptext.Less(queue[i].SourceID, queue[j].SourceID)
	})

	summary := Summary{
		Batch:       id.String(),
		Processed:   len(files),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, item := range queue {
		if item.Confidence < scoring.Thresholds.NeedsReviewMin {
			summary.LowConfidenceCount++
		}
	}

	if err := batch.WriteJSON(filepath.Join(outDir, "_review-queue.json"), queue); err != nil {
		return nil, err
	}
	if err := batch.WriteJSON(filepath.Join(outDir, "_summary.json"), summary); err != nil {
		return nil, err
	}

	logger.Info("extraction completed",
		zap.String("batch", id.String()),
		zap.Int("processed", summary.Processed),
		zap.Int("lowConfidence", summary.LowConfidenceCount))
	return &Result{Batch: id, Dir: outDir, Summary: summary}, nil
}
