package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validConfigJSON = `{
  "version": 4,
  "deployment": { "provider": "vercel" },
  "schedule": { "dailyCron": "0 21 * * *" },
  "fetch": {
    "defaultDelayMs": 1500,
    "requestTimeoutMs": 12000,
    "userAgent": "lostspecs-fetcher/0.4 (+https://lostspecs.example)",
    "respectRobotsTxt": true,
    "respectCrawlDelay": true,
    "denyDomains": ["*.blocked.example"],
    "maxBodyChars": 150000
  },
  "scoring": { "thresholds": { "candidateReadyMin": 90, "needsReviewMin": 60 } },
  "publisher": {
    "autoApplyEnabled": false,
    "minConfidence": 95,
    "requireCompleteSuggestedEntry": true
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "automation.config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidDocument(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validConfigJSON))
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Version)
	require.Equal(t, "vercel", cfg.Deployment.Provider)
	require.Equal(t, "0 21 * * *", cfg.Schedule.DailyCron)
	require.Equal(t, 1500, cfg.Fetch.DefaultDelayMs)
	require.Equal(t, []string{"*.blocked.example"}, cfg.Fetch.DenyDomains)
	require.Equal(t, 90, cfg.Scoring.Thresholds.CandidateReadyMin)
	require.Equal(t, 95, cfg.Publisher.MinConfidence)
	require.False(t, cfg.Publisher.AutoApplyEnabled)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	minimal := `{
  "version": 1,
  "deployment": { "provider": "vercel" },
  "schedule": { "dailyCron": "0 21 * * *" }
}`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	require.Equal(t, 1000, cfg.Fetch.DefaultDelayMs)
	require.Equal(t, 10000, cfg.Fetch.RequestTimeoutMs)
	require.True(t, cfg.Fetch.RespectRobotsTxt)
	require.True(t, cfg.Fetch.RespectCrawlDelay)
	require.Equal(t, 200000, cfg.Fetch.MaxBodyChars)
	require.Equal(t, 90, cfg.Scoring.Thresholds.CandidateReadyMin)
	require.Equal(t, 60, cfg.Scoring.Thresholds.NeedsReviewMin)
	require.False(t, cfg.Publisher.AutoApplyEnabled)
	require.Equal(t, 95, cfg.Publisher.MinConfidence)
	require.True(t, cfg.Publisher.RequireCompleteSuggestedEntry)
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, `{"version": 0}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "version")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	f := Fetch{DefaultDelayMs: 1500, RequestTimeoutMs: 12000}
	require.Equal(t, "1.5s", f.DefaultDelay().String())
	require.Equal(t, "12s", f.RequestTimeout().String())
}

func TestProblemsCollectsEverything(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Version:    0,
		Deployment: Deployment{Provider: "netlify"},
		Schedule:   Schedule{DailyCron: "hourly"},
		Fetch: Fetch{
			DefaultDelayMs:   -1,
			RequestTimeoutMs: 500,
			UserAgent:        "x",
			MaxBodyChars:     0,
		},
		Scoring:   Scoring{Thresholds: Thresholds{CandidateReadyMin: 50, NeedsReviewMin: 80}},
		Publisher: Publisher{MinConfidence: 150},
	}
	problems := cfg.Problems()
	require.Len(t, problems, 9)

	// Validate surfaces only the first.
	err := cfg.Validate()
	require.Error(t, err)
	require.Equal(t, problems[0], err.Error())
}

func TestProblemsCleanConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validConfigJSON))
	require.NoError(t, err)
	require.Empty(t, cfg.Problems())
	require.NoError(t, cfg.Validate())
}

func TestLoadUnvalidatedSkipsChecks(t *testing.T) {
	t.Parallel()

	cfg, err := LoadUnvalidated(writeConfig(t, `{"version": 0, "deployment": {"provider": "nowhere"}}`))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Version)
	require.NotEmpty(t, cfg.Problems())
}
