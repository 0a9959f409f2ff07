// Package candidate cross-references extraction output against the entry
// store and source registry, drafting machine-made proposals that the
// publish gate (or a human) decides on later.
package candidate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/extract"
	"github.com/lostspecs/curator/internal/registry"
	"github.com/lostspecs/curator/internal/store"
)

// Candidate type values.
const (
	TypeNewEntry       = "new_entry"
	TypeEvidenceUpdate = "evidence_update"
)

// Placeholder values for suggested-entry fields the builder could not
// genuinely extract. Each use is recorded in TemplateFields.
const (
	placeholderTitle          = "（タイトル未取得）"
	placeholderMedium         = "要確認"
	placeholderClassification = "要確認"
	placeholderWork           = "要確認（作品未特定）"
	placeholderFirst          = "要確認（初出未確認）"
	placeholderFactShown      = "要確認（本文から要約を抽出できませんでした）"
	placeholderFactAfter      = "要確認（続報未確認）"
	placeholderEvaluation     = "要確認（評価未実施）"
)

// DuplicateSignals flags overlap with the current entry store.
type DuplicateSignals struct {
	SourceURLAlreadyUsed  bool `json:"sourceUrlAlreadyUsed"`
	LinkedExistingEntries bool `json:"linkedExistingEntries"`
}

// ExtractedFacts carries the extraction fields forward for reviewers.
type ExtractedFacts struct {
	Title       string `json:"title"`
	H1          string `json:"h1"`
	OgTitle     string `json:"ogTitle"`
	Description string `json:"description"`
	TextSample  string `json:"textSample"`
	TextLength  int    `json:"textLength"`
}

// Candidate is a machine-drafted, not-yet-trusted proposal to create or
// augment an entry. Immutable once written into a candidate batch.
type Candidate struct {
	CandidateID        string            `json:"candidateId"`
	Batch              string            `json:"batch"`
	SourceID           string            `json:"sourceId"`
	SourceURL          string            `json:"sourceUrl"`
	SourceLabel        string            `json:"sourceLabel"`
	SourceType         string            `json:"sourceType,omitempty"`
	Priority           *int              `json:"priority"`
	WorkRefs           []string          `json:"workRefs"`
	EntryRefs          []string          `json:"entryRefs"`
	CandidateType      string            `json:"candidateType"`
	Confidence         int               `json:"confidence"`
	Decision           extract.Decision  `json:"decision"`
	AutoEligible       bool              `json:"autoEligible"`
	DuplicateSignals   DuplicateSignals  `json:"duplicateSignals"`
	ThresholdsSnapshot config.Thresholds `json:"thresholdsSnapshot"`
	Extracted          ExtractedFacts    `json:"extracted"`
	SuggestedEntry     store.Entry       `json:"suggestedEntry"`
	TemplateFields     []string          `json:"templateFields"`
	ReviewReasons      []string          `json:"reviewReasons"`
	GeneratedAt        string            `json:"generatedAt"`
}

// Builder assembles candidates against one fixed snapshot of the store and
// registry.
type Builder struct {
	index      *store.Index
	targets    map[string]registry.Target
	thresholds config.Thresholds
	now        func() time.Time
}

// NewBuilder captures the store/registry state candidates are judged
// against.
func NewBuilder(entries []store.Entry, reg registry.File, thresholds config.Thresholds) *Builder {
	return &Builder{
		index:      store.NewIndex(entries),
		targets:    reg.ByID(),
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Build derives one candidate from an extraction record.
func (b *Builder) Build(rec extract.Record, id batch.ID) Candidate {
	target, registered := b.targets[rec.SourceID]

	workRefs := target.WorkRefs
	entryRefs := target.EntryRefs
	linkedExisting := len(entryRefs) > 0
	urlUsed := b.index.SourceURLUsed(rec.URL)

	candidateType := TypeNewEntry
	if linkedExisting {
		candidateType = TypeEvidenceUpdate
	}

	label := target.Label
	if !registered || label == "" {
		label = rec.URL
	}

	cand := Candidate{
		CandidateID:   candidateID(id, rec),
		Batch:         id.String(),
		SourceID:      rec.SourceID,
		SourceURL:     rec.URL,
		SourceLabel:   label,
		WorkRefs:      workRefs,
		EntryRefs:     entryRefs,
		CandidateType: candidateType,
		Confidence:    rec.Confidence,
		Decision:      rec.Decision,
		AutoEligible: rec.Decision.Key == extract.DecisionCandidateReady.Key &&
			candidateType == TypeNewEntry && !urlUsed,
		DuplicateSignals: DuplicateSignals{
			SourceURLAlreadyUsed:  urlUsed,
			LinkedExistingEntries: linkedExisting,
		},
		ThresholdsSnapshot: b.thresholds,
		Extracted: ExtractedFacts{
			Title:       rec.Extracted.Title,
			H1:          rec.Extracted.H1,
			OgTitle:     rec.Extracted.OgTitle,
			Description: rec.Extracted.Description,
			TextSample:  rec.Extracted.TextSample,
			TextLength:  rec.Extracted.TextLength,
		},
		ReviewReasons: rec.ReviewReasons,
		GeneratedAt:   b.now().UTC().Format(time.RFC3339),
	}
	if registered {
		cand.SourceType = target.SourceType
		priority := target.Priority
		cand.Priority = &priority
	}

	cand.SuggestedEntry, cand.TemplateFields = b.draftEntry(rec, cand)
	return cand
}

// draftEntry assembles the suggested entry. Fields that are guesses rather
// than genuine extractions are filled with explicit placeholders and
// enumerated in templateFields so downstream review treats the draft as
// incomplete.
func (b *Builder) draftEntry(rec extract.Record, cand Candidate) (store.Entry, []string) {
	templated := []string{}
	markTemplated := func(field string) { templated = append(templated, field) }

	title := firstNonEmpty(rec.Extracted.H1, rec.Extracted.OgTitle, rec.Extracted.Title)
	if title == "" {
		title = placeholderTitle
		markTemplated("itemTitle")
	}

	work := placeholderWork
	if len(cand.WorkRefs) > 0 {
		work = cand.WorkRefs[0]
	} else {
		markTemplated("work")
	}

	medium := b.inferMedium(cand.WorkRefs)
	if medium == "" {
		medium = placeholderMedium
		markTemplated("medium")
	}

	classification := b.inferClassification(cand.EntryRefs)
	if classification == "" {
		classification = placeholderClassification
		markTemplated("classification")
	}

	factShown := seedFactShown(rec.Extracted)
	if factShown == "" {
		factShown = placeholderFactShown
		markTemplated("factShown")
	}

	markTemplated("firstAppearance")
	markTemplated("factAfter")
	markTemplated("evaluation")

	status := cand.Decision.Label
	entry := store.Entry{
		Work:            work,
		Medium:          medium,
		ItemTitle:       title,
		Classification:  classification,
		Status:          status,
		Tags:            []string{status},
		FirstAppearance: placeholderFirst,
		FactShown:       factShown,
		FactAfter:       placeholderFactAfter,
		Evaluation:      placeholderEvaluation,
		Note: fmt.Sprintf("自動抽出候補（%s） sourceId=%s",
			b.now().UTC().Format(time.RFC3339), rec.SourceID),
		Sources: []store.Source{{Label: cand.SourceLabel, URL: rec.URL}},
	}
	return entry, templated
}

// inferMedium returns the single medium shared by every existing entry of
// the cross-referenced works, or "" when they disagree or none exist.
func (b *Builder) inferMedium(workRefs []string) string {
	media := make(map[string]struct{})
	for _, work := range workRefs {
		for _, entry := range b.index.ByWork[work] {
			if entry.Medium != "" {
				media[entry.Medium] = struct{}{}
			}
		}
	}
	return soleMember(media)
}

// inferClassification mirrors inferMedium over the linked entries.
func (b *Builder) inferClassification(entryRefs []string) string {
	labels := make(map[string]struct{})
	for _, id := range entryRefs {
		if entry, ok := b.index.ByID[id]; ok && entry.Classification != "" {
			labels[entry.Classification] = struct{}{}
		}
	}
	return soleMember(labels)
}

func soleMember(set map[string]struct{}) string {
	if len(set) != 1 {
		return ""
	}
	for v := range set {
		return v
	}
	return ""
}

const minFactSentenceChars = 40

var sentenceBreak = regexp.MustCompile(`[。.!?！？]`)

// seedFactShown prefers the meta description, then the first sufficiently
// long sentence of the text sample.
func seedFactShown(e extract.Extracted) string {
	if desc := strings.TrimSpace(e.Description); desc != "" {
		return desc
	}
	for _, sentence := range sentenceBreak.Split(e.TextSample, -1) {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) >= minFactSentenceChars {
			return sentence
		}
	}
	return ""
}

func candidateID(id batch.ID, rec extract.Record) string {
	base := firstNonEmpty(rec.SourceID, rec.Extracted.Title, "unknown")
	slug := Slugify(base)
	if slug == "" {
		slug = "unknown"
	}
	return fmt.Sprintf("cand-%s-%s", id, slug)
}

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	spaceRun     = regexp.MustCompile(`\s+`)
	hyphenRun    = regexp.MustCompile(`-+`)
)

// Slugify lowercases, NFKD-normalizes and reduces a value to hyphenated
// ASCII word characters, capped at 80 characters.
func Slugify(value string) string {
	s := strings.ToLower(norm.NFKD.String(value))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
