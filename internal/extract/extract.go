// Package extract turns raw snapshots into structural facts with a
// confidence score and a decision tier. Everything here is a pure function
// of its input: no network access, no clock, no randomness.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/fetch"
)

const (
	maxFieldChars  = 500
	maxSampleChars = 1200
	minTextChars   = 80
)

// Extracted holds the structural facts pulled from one snapshot body.
type Extracted struct {
	Title           string   `json:"title"`
	H1              string   `json:"h1"`
	OgTitle         string   `json:"ogTitle"`
	Description     string   `json:"description"`
	H2List          []string `json:"h2List"`
	TextSample      string   `json:"textSample"`
	TextLength      int      `json:"textLength"`
	ChallengeLikely bool     `json:"challengeLikely"`
}

// Decision is the tier assigned from confidence against the configured
// thresholds.
type Decision struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Decision tier keys and their display labels.
var (
	DecisionCandidateReady = Decision{Key: "candidate_ready", Label: "掲載候補"}
	DecisionNeedsReview    = Decision{Key: "needs_review", Label: "要レビュー"}
	DecisionHold           = Decision{Key: "hold", Label: "保留"}
)

// Record is the extraction output, derived 1:1 from a snapshot.
type Record struct {
	SourceID      string    `json:"sourceId"`
	URL           string    `json:"url"`
	FetchedAt     string    `json:"fetchedAt"`
	FetchOK       bool      `json:"fetchOk"`
	Status        *int      `json:"status"`
	ContentType   string    `json:"contentType"`
	Extracted     Extracted `json:"extracted"`
	Confidence    int       `json:"confidence"`
	Decision      Decision  `json:"decision"`
	ReviewReasons []string  `json:"reviewReasons"`
}

// Interstitial and verification page signals. Matching any of them marks
// the extraction as a likely bot challenge rather than real content.
var challengeSignals = []string{
	"verifying you are human",
	"checking your browser",
	"just a moment",
	"attention required",
	"cloudflare",
	"captcha",
	"access denied",
	"enable javascript and cookies",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FromSnapshot derives the extraction record for one snapshot. Identical
// snapshots always yield identical output.
func FromSnapshot(snap fetch.Snapshot, thresholds config.Thresholds) Record {
	body := ""
	if snap.Body != nil {
		body = *snap.Body
	}
	extracted := parseBody(body)

	confidence, reasons := Score(snap.OK, snap.Status, snap.ContentType, extracted)
	return Record{
		SourceID:      snap.SourceID,
		URL:           snap.URL,
		FetchedAt:     snap.FetchedAt,
		FetchOK:       snap.OK,
		Status:        snap.Status,
		ContentType:   snap.ContentType,
		Extracted:     extracted,
		Confidence:    confidence,
		Decision:      Tier(confidence, thresholds),
		ReviewReasons: reasons,
	}
}

// parseBody pulls the structural fields and the plain-text rendering out
// of an HTML body.
func parseBody(body string) Extracted {
	var out Extracted
	if strings.TrimSpace(body) == "" {
		out.TextSample = ""
		return out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		// Unparseable bytes still get the challenge scan over the raw text.
		out.ChallengeLikely = looksLikeChallenge(body)
		return out
	}

	out.Title = clipField(doc.Find("title").First().Text())
	out.H1 = clipField(doc.Find("h1").First().Text())
	out.OgTitle = clipField(metaContent(doc, `meta[property="og:title"]`))
	out.Description = clipField(firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="description"]`),
	))
	doc.Find("h2").Each(func(_ int, sel *goquery.Selection) {
		if h2 := clipField(sel.Text()); h2 != "" {
			out.H2List = append(out.H2List, h2)
		}
	})

	doc.Find("script, style, noscript").Remove()
	text := collapseWhitespace(doc.Text())
	out.TextLength = len([]rune(text))
	out.TextSample = clipRunes(text, maxSampleChars)
	out.ChallengeLikely = looksLikeChallenge(out.Title + " " + out.TextSample)
	return out
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func clipField(s string) string {
	return clipRunes(collapseWhitespace(s), maxFieldChars)
}

func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func looksLikeChallenge(text string) bool {
	lower := strings.ToLower(text)
	for _, signal := range challengeSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

// Score computes the confidence and review reasons from the fetch outcome
// and the extracted facts. The awards are fixed: fetch ok +20, 2xx status
// +20, HTML content type +20, title +15, og:title +10, h1 +10, text of at
// least 80 characters +5, clamped to [0,100].
func Score(fetchOK bool, status *int, contentType string, e Extracted) (int, []string) {
	score := 0
	reasons := []string{}

	if fetchOK {
		score += 20
	} else {
		reasons = append(reasons, "fetch_failed")
	}
	if status != nil && *status >= 200 && *status < 300 {
		score += 20
	} else {
		reasons = append(reasons, "non_2xx")
	}
	if strings.Contains(contentType, "text/html") {
		score += 20
	} else {
		reasons = append(reasons, "non_html")
	}
	if e.Title != "" {
		score += 15
	} else {
		reasons = append(reasons, "missing_title")
	}
	if e.OgTitle != "" {
		score += 10
	}
	if e.H1 != "" {
		score += 10
	}
	if e.TextLength >= minTextChars {
		score += 5
	} else {
		reasons = append(reasons, "short_text")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, reasons
}

// Tier maps a confidence score onto a decision tier using the configured
// inclusive minimums.
func Tier(confidence int, thresholds config.Thresholds) Decision {
	switch {
	case confidence >= thresholds.CandidateReadyMin:
		return DecisionCandidateReady
	case confidence >= thresholds.NeedsReviewMin:
		return DecisionNeedsReview
	default:
		return DecisionHold
	}
}
