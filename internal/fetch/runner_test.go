package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/policy"
	"github.com/lostspecs/curator/internal/registry"
)

func testFetchConfig() config.Fetch {
	return config.Fetch{
		DefaultDelayMs:   0,
		RequestTimeoutMs: 5000,
		UserAgent:        "LostSpecsBot/1.0 (+https://lostspecs.example)",
		MaxBodyChars:     200000,
	}
}

func TestSelectTargets(t *testing.T) {
	t.Parallel()

	items := []registry.Target{
		{ID: "src-c", Priority: 2, Enabled: true},
		{ID: "src-a", Priority: 1, Enabled: true},
		{ID: "src-off", Priority: 1, Enabled: false},
		{ID: "src-b", Priority: 1, Enabled: true},
	}

	got := SelectTargets(items, Options{})
	require.Len(t, got, 3)
	require.Equal(t, "src-a", got[0].ID)
	require.Equal(t, "src-b", got[1].ID)
	require.Equal(t, "src-c", got[2].ID)

	got = SelectTargets(items, Options{IncludeDisabled: true})
	require.Len(t, got, 4)

	got = SelectTargets(items, Options{Limit: 2})
	require.Len(t, got, 2)
	require.Equal(t, "src-a", got[0].ID)
}

func TestRunWritesBatchAndManifest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><head><title>OK</title></head><body>fine</body></html>"))
		case "/missing":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("<html><body>not here</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.DenyDomains = []string{"blocked.example"}
	runner := NewRunner(cfg, Options{}, zaptest.NewLogger(t))

	targets := []registry.Target{
		{ID: "src-ok", URL: srv.URL + "/ok", Priority: 1, Enabled: true},
		{ID: "src-missing", URL: srv.URL + "/missing", Priority: 2, Enabled: true},
		{ID: "src-denied", URL: "https://blocked.example/page", Priority: 3, Enabled: true},
	}

	root := filepath.Join(t.TempDir(), "data", "snapshots")
	result, err := runner.Run(context.Background(), root, targets, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, 3, result.Manifest.Total)
	require.Equal(t, 1, result.Manifest.Success)
	require.Equal(t, 1, result.Manifest.Failure)
	require.Equal(t, 1, result.Manifest.Skipped)
	require.NotEmpty(t, result.Manifest.RunID)
	require.Equal(t, cfg.UserAgent, result.Manifest.Policy.UserAgent)

	var ok Snapshot
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "src-ok.json"), &ok))
	require.True(t, ok.OK)
	require.NotNil(t, ok.Status)
	require.Equal(t, 200, *ok.Status)
	require.Contains(t, ok.ContentType, "text/html")
	require.NotNil(t, ok.Body)
	require.Contains(t, *ok.Body, "<title>OK</title>")
	require.NotEmpty(t, ok.FetchedAt)

	// Non-2xx responses still capture status and body as data, not error.
	var missing Snapshot
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "src-missing.json"), &missing))
	require.False(t, missing.OK)
	require.NotNil(t, missing.Status)
	require.Equal(t, 404, *missing.Status)
	require.NotNil(t, missing.Body)
	require.Contains(t, *missing.Body, "not here")
	require.Empty(t, missing.Error)

	var denied Snapshot
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "src-denied.json"), &denied))
	require.True(t, denied.Skipped)
	require.False(t, denied.OK)
	require.Equal(t, "skipped: "+policy.ReasonDomainBlocked, denied.Error)
	require.NotNil(t, denied.Policy)
	require.False(t, denied.Policy.Allowed)

	var manifest Manifest
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "_manifest.json"), &manifest))
	require.Equal(t, result.Manifest.RunID, manifest.RunID)
	require.Len(t, manifest.Items, 3)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	runner := NewRunner(testFetchConfig(), Options{}, zaptest.NewLogger(t))
	root := filepath.Join(t.TempDir(), "data", "snapshots")
	targets := []registry.Target{{ID: "src-a", URL: srv.URL + "/a", Priority: 1, Enabled: true}}

	result, err := runner.Run(context.Background(), root, targets, Options{DryRun: true})
	require.NoError(t, err)
	require.Nil(t, result)
	_, statErr := os.Stat(root)
	require.True(t, os.IsNotExist(statErr))
}

func TestRunNoTargets(t *testing.T) {
	t.Parallel()

	runner := NewRunner(testFetchConfig(), Options{}, zaptest.NewLogger(t))
	result, err := runner.Run(context.Background(), t.TempDir(), nil, Options{})
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRunBodyTruncation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>" + strings.Repeat("あ", 500) + "</html>"))
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.MaxBodyChars = 100
	runner := NewRunner(cfg, Options{}, zaptest.NewLogger(t))

	root := filepath.Join(t.TempDir(), "data", "snapshots")
	targets := []registry.Target{{ID: "src-big", URL: srv.URL, Priority: 1, Enabled: true}}
	result, err := runner.Run(context.Background(), root, targets, Options{})
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "src-big.json"), &snap))
	require.NotNil(t, snap.Body)
	require.Equal(t, 100, len([]rune(*snap.Body)))
}

func TestRunUnreachableTargetRecordsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // nothing listens anymore

	runner := NewRunner(testFetchConfig(), Options{}, zaptest.NewLogger(t))
	root := filepath.Join(t.TempDir(), "data", "snapshots")
	targets := []registry.Target{{ID: "src-gone", URL: srv.URL + "/x", Priority: 1, Enabled: true}}
	result, err := runner.Run(context.Background(), root, targets, Options{})
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, batch.ReadJSON(filepath.Join(result.Dir, "src-gone.json"), &snap))
	require.False(t, snap.OK)
	require.Nil(t, snap.Status)
	require.NotEmpty(t, snap.Error)
}

func TestTruncateChars(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", truncateChars("abc", 10))
	require.Equal(t, "abc", truncateChars("abcdef", 3))
	require.Equal(t, "あいう", truncateChars("あいうえお", 3))
	require.Equal(t, "abcdef", truncateChars("abcdef", 0))
}

func TestPauseHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second)
}
