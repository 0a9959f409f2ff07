package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/fetch"
)

func intp(v int) *int { return &v }

func testThresholds() config.Thresholds {
	return config.Thresholds{CandidateReadyMin: 80, NeedsReviewMin: 50}
}

func TestScoreFullMarks(t *testing.T) {
	t.Parallel()

	e := Extracted{Title: "t", OgTitle: "og", H1: "h", TextLength: 500}
	score, reasons := Score(true, intp(200), "text/html; charset=utf-8", e)
	if score != 100 {
		t.Fatalf("expected 100, got %d", score)
	}
	if len(reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", reasons)
	}
}

func TestScoreHTMLWithTitleButShortText(t *testing.T) {
	t.Parallel()

	e := Extracted{Title: "X", TextLength: 40}
	score, reasons := Score(true, intp(200), "text/html", e)
	if score != 75 {
		t.Fatalf("expected 75, got %d", score)
	}
	if !reflect.DeepEqual(reasons, []string{"short_text"}) {
		t.Fatalf("expected [short_text], got %v", reasons)
	}
}

func TestScoreFailedFetch(t *testing.T) {
	t.Parallel()

	score, reasons := Score(false, nil, "", Extracted{})
	if score != 0 {
		t.Fatalf("expected 0, got %d", score)
	}
	want := []string{"fetch_failed", "non_2xx", "non_html", "missing_title", "short_text"}
	if !reflect.DeepEqual(reasons, want) {
		t.Fatalf("expected %v, got %v", want, reasons)
	}
}

func TestScoreNon2xxKeepsOtherAwards(t *testing.T) {
	t.Parallel()

	e := Extracted{Title: "Not Found", TextLength: 120}
	score, reasons := Score(true, intp(404), "text/html", e)
	if score != 60 {
		t.Fatalf("expected 60, got %d", score)
	}
	if !reflect.DeepEqual(reasons, []string{"non_2xx"}) {
		t.Fatalf("expected [non_2xx], got %v", reasons)
	}
}

func TestTierBoundaries(t *testing.T) {
	t.Parallel()

	th := testThresholds()
	cases := []struct {
		confidence int
		want       Decision
	}{
		{100, DecisionCandidateReady},
		{80, DecisionCandidateReady},
		{79, DecisionNeedsReview},
		{50, DecisionNeedsReview},
		{49, DecisionHold},
		{0, DecisionHold},
	}
	for _, tc := range cases {
		if got := Tier(tc.confidence, th); got != tc.want {
			t.Errorf("Tier(%d) = %+v, want %+v", tc.confidence, got, tc.want)
		}
	}
}

func TestFromSnapshotStructuralFields(t *testing.T) {
	t.Parallel()

	body := `<!doctype html><html><head>
<title>  Lost   Pilot Overview </title>
<meta property="og:title" content="Lost Pilot">
<meta property="og:description" content="An unaired pilot episode.">
<meta name="description" content="should lose to og:description">
</head><body>
<h1>Lost Pilot</h1>
<h2>Production</h2>
<h2>  </h2>
<h2>Reception</h2>
<script>var hidden = "never in the text sample";</script>
<p>` + strings.Repeat("本文 ", 60) + `</p>
</body></html>`

	snap := fetch.Snapshot{
		SourceID:    "src-example",
		URL:         "https://example.com/p",
		FetchedAt:   "2026-08-31T00:00:00Z",
		OK:          true,
		Status:      intp(200),
		ContentType: "text/html; charset=utf-8",
		Body:        &body,
	}
	rec := FromSnapshot(snap, testThresholds())

	if rec.Extracted.Title != "Lost Pilot Overview" {
		t.Fatalf("unexpected title %q", rec.Extracted.Title)
	}
	if rec.Extracted.OgTitle != "Lost Pilot" {
		t.Fatalf("unexpected ogTitle %q", rec.Extracted.OgTitle)
	}
	if rec.Extracted.Description != "An unaired pilot episode." {
		t.Fatalf("og:description must win, got %q", rec.Extracted.Description)
	}
	if !reflect.DeepEqual(rec.Extracted.H2List, []string{"Production", "Reception"}) {
		t.Fatalf("unexpected h2 list %v", rec.Extracted.H2List)
	}
	if strings.Contains(rec.Extracted.TextSample, "hidden") {
		t.Fatalf("script text leaked into sample: %q", rec.Extracted.TextSample)
	}
	if rec.Extracted.TextLength < minTextChars {
		t.Fatalf("expected long text, got %d", rec.Extracted.TextLength)
	}
	if rec.Confidence != 100 {
		t.Fatalf("expected confidence 100, got %d", rec.Confidence)
	}
	if rec.Decision != DecisionCandidateReady {
		t.Fatalf("expected candidate_ready, got %+v", rec.Decision)
	}
	if len(rec.ReviewReasons) != 0 {
		t.Fatalf("expected no review reasons, got %v", rec.ReviewReasons)
	}
}

func TestFromSnapshotDeterministic(t *testing.T) {
	t.Parallel()

	body := `<html><head><title>Same In Same Out</title></head><body><p>short</p></body></html>`
	snap := fetch.Snapshot{
		SourceID:    "src-a",
		URL:         "https://example.com/a",
		OK:          true,
		Status:      intp(200),
		ContentType: "text/html",
		Body:        &body,
	}
	first := FromSnapshot(snap, testThresholds())
	for i := 0; i < 5; i++ {
		if got := FromSnapshot(snap, testThresholds()); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differed: %+v vs %+v", i, got, first)
		}
	}
}

func TestFromSnapshotNilBody(t *testing.T) {
	t.Parallel()

	snap := fetch.Snapshot{SourceID: "src-b", URL: "https://example.com/b"}
	rec := FromSnapshot(snap, testThresholds())
	if rec.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %d", rec.Confidence)
	}
	if rec.Decision != DecisionHold {
		t.Fatalf("expected hold, got %+v", rec.Decision)
	}
	if rec.Extracted.TextLength != 0 || rec.Extracted.TextSample != "" {
		t.Fatalf("expected empty extraction, got %+v", rec.Extracted)
	}
}

func TestChallengeDetection(t *testing.T) {
	t.Parallel()

	body := `<html><head><title>Just a moment...</title></head>
<body><p>Checking your browser before accessing the site.</p></body></html>`
	ex := parseBody(body)
	if !ex.ChallengeLikely {
		t.Fatal("expected challenge page to be flagged")
	}

	ex = parseBody(`<html><head><title>Regular article</title></head><body><p>content</p></body></html>`)
	if ex.ChallengeLikely {
		t.Fatal("regular page must not be flagged")
	}
}

func TestClipFieldAndSampleLimits(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("あ", maxSampleChars+300)
	body := `<html><head><title>` + strings.Repeat("x", maxFieldChars+50) + `</title></head><body><p>` + long + `</p></body></html>`
	ex := parseBody(body)
	if got := len([]rune(ex.Title)); got != maxFieldChars {
		t.Fatalf("expected title clipped to %d runes, got %d", maxFieldChars, got)
	}
	if got := len([]rune(ex.TextSample)); got != maxSampleChars {
		t.Fatalf("expected sample clipped to %d runes, got %d", maxSampleChars, got)
	}
	if ex.TextLength <= maxSampleChars {
		t.Fatalf("textLength must count the full text, got %d", ex.TextLength)
	}
}
