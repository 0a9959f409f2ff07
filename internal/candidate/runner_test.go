package candidate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/extract"
	"github.com/lostspecs/curator/internal/registry"
	"github.com/lostspecs/curator/internal/store"
)

func writeExtraction(t *testing.T, dir string, rec extract.Record) {
	t.Helper()
	require.NoError(t, batch.WriteJSON(filepath.Join(dir, batch.SafeFileName(rec.SourceID)+".json"), rec))
}

func extraction(sourceID, url string, confidence int, decision extract.Decision) extract.Record {
	status := 200
	return extract.Record{
		SourceID:    sourceID,
		URL:         url,
		FetchOK:     true,
		Status:      &status,
		ContentType: "text/html",
		Extracted:   extract.Extracted{Title: "T " + sourceID, TextLength: 200},
		Confidence:  confidence,
		Decision:    decision,
	}
}

func TestRunBuildsBatchArtifacts(t *testing.T) {
	t.Parallel()

	layout := batch.NewLayout(t.TempDir())
	id := batch.ID("20260831-130000")
	inDir := filepath.Join(layout.ExtractedRoot(), id.String())

	require.NoError(t, store.Save(layout.EntriesPath(), []store.Entry{
		{ID: "e1", Work: "w", Medium: "アニメ", Classification: "欠番回",
			Sources: []store.Source{{Label: "l", URL: "https://used.example/a"}}},
	}))
	require.NoError(t, registry.Save(layout.SourcesPath(), registry.File{
		SchemaVersion: 1,
		Items: []registry.Target{
			{ID: "src-ready", Label: "Ready", URL: "https://a.example/1", SourceType: registry.TypeOfficial, Priority: 1, Enabled: true},
			{ID: "src-hold", Label: "Hold", URL: "https://a.example/2", SourceType: registry.TypeSecondary, Priority: 3, Enabled: true},
		},
	}))

	writeExtraction(t, inDir, extraction("src-ready", "https://a.example/1", 95, extract.DecisionCandidateReady))
	writeExtraction(t, inDir, extraction("src-hold", "https://a.example/2", 20, extract.DecisionHold))
	writeExtraction(t, inDir, extraction("src-review", "https://a.example/3", 60, extract.DecisionNeedsReview))

	cfg := config.Config{Scoring: config.Scoring{Thresholds: config.Thresholds{CandidateReadyMin: 80, NeedsReviewMin: 50}}}
	result, err := Run(layout, id, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Equal(t, 3, result.Summary.Total)
	require.Equal(t, 1, result.Summary.CandidateReadyCount)
	require.Equal(t, 1, result.Summary.NeedsReviewCount)
	require.Equal(t, 1, result.Summary.HoldCount)
	require.Equal(t, 1, result.Summary.AutoEligibleCount)
	require.Equal(t, 3, result.Summary.NewEntryCount)

	var candidates []Candidate
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "candidates.json"), &candidates))
	require.Len(t, candidates, 3)

	var queue []QueueItem
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "_review-queue.json"), &queue))
	require.Len(t, queue, 3)
	// Ready first, hold last.
	require.Equal(t, "src-ready", queue[0].SourceID)
	require.Equal(t, "src-review", queue[1].SourceID)
	require.Equal(t, "src-hold", queue[2].SourceID)

	var latest LatestPointer
	require.NoError(t, batch.ReadJSON(filepath.Join(layout.CandidatesRoot(), "_latest.json"), &latest))
	require.Equal(t, id.String(), latest.Batch)
	require.Equal(t, "data/candidates/"+id.String(), latest.Path)
	require.Equal(t, result.Summary, latest.Summary)
}

func TestRunEmptyExtractionBatchErrors(t *testing.T) {
	t.Parallel()

	layout := batch.NewLayout(t.TempDir())
	id := batch.ID("20260831-140000")
	require.NoError(t, batch.WriteJSON(filepath.Join(layout.ExtractedRoot(), id.String(), "_summary.json"), map[string]int{}))
	require.NoError(t, store.Save(layout.EntriesPath(), []store.Entry{}))
	require.NoError(t, registry.Save(layout.SourcesPath(), registry.File{SchemaVersion: 1}))

	_, err := Run(layout, id, config.Config{}, zaptest.NewLogger(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no extraction records")
}
