// Package publish decides which candidates may be merged into the entry
// store. Evaluation keeps a running context of ids and source URLs claimed
// during the run, so within one run each fingerprint is granted at most
// once: the first candidate to claim it wins.
package publish

import (
	"strings"

	"github.com/lostspecs/curator/internal/candidate"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/extract"
	"github.com/lostspecs/curator/internal/store"
)

// Rejection reason codes, appended in evaluation order.
const (
	ReasonNotCandidateReady    = "decision_not_candidate_ready"
	ReasonConfidenceTooLow     = "confidence_too_low"
	ReasonTypeNotPublishable   = "candidate_type_not_auto_publishable"
	ReasonSourceURLUsed        = "source_url_already_used"
	ReasonLinkedExistingEntry  = "linked_existing_entry"
	ReasonSuggestedIncomplete  = "suggested_entry_incomplete"
	ReasonEntryIDExists        = "entry_id_already_exists"
	ReasonEntrySourceURLExists = "entry_source_url_already_exists"
)

// Evaluation is the per-candidate report row.
type Evaluation struct {
	CandidateID   string           `json:"candidateId"`
	SourceID      string           `json:"sourceId"`
	Title         string           `json:"title"`
	Confidence    int              `json:"confidence"`
	Decision      extract.Decision `json:"decision"`
	CandidateType string           `json:"candidateType"`
	Publishable   bool             `json:"publishable"`
	Reasons       []string         `json:"reasons"`
}

// Accepted pairs a publishable candidate with its normalized entry draft.
type Accepted struct {
	CandidateID string      `json:"candidateId"`
	Entry       store.Entry `json:"entry"`
}

// Outcome is everything one gate run produced.
type Outcome struct {
	Evaluated []Evaluation
	Accepted  []Accepted
	Histogram map[string]int
}

// runContext tracks the fingerprints already claimed, seeded from the
// current store and extended as candidates are accepted.
type runContext struct {
	entryIDs   map[string]struct{}
	sourceURLs map[string]struct{}
}

func newRunContext(entries []store.Entry) *runContext {
	ctx := &runContext{
		entryIDs:   make(map[string]struct{}, len(entries)),
		sourceURLs: make(map[string]struct{}),
	}
	for _, entry := range entries {
		if entry.ID != "" {
			ctx.entryIDs[entry.ID] = struct{}{}
		}
		for _, src := range entry.Sources {
			if src.URL != "" {
				ctx.sourceURLs[src.URL] = struct{}{}
			}
		}
	}
	return ctx
}

func (c *runContext) claim(entry store.Entry) {
	c.entryIDs[entry.ID] = struct{}{}
	for _, src := range entry.Sources {
		if src.URL != "" {
			c.sourceURLs[src.URL] = struct{}{}
		}
	}
}

// Evaluate runs the gate over a candidate batch in stored order.
func Evaluate(candidates []candidate.Candidate, entries []store.Entry, cfg config.Publisher) Outcome {
	ctx := newRunContext(entries)
	outcome := Outcome{Histogram: make(map[string]int)}

	for _, cand := range candidates {
		publishable, reasons, draft := evaluateOne(cand, ctx, cfg)
		outcome.Evaluated = append(outcome.Evaluated, Evaluation{
			CandidateID:   cand.CandidateID,
			SourceID:      cand.SourceID,
			Title:         cand.SuggestedEntry.ItemTitle,
			Confidence:    cand.Confidence,
			Decision:      cand.Decision,
			CandidateType: cand.CandidateType,
			Publishable:   publishable,
			Reasons:       reasons,
		})
		if publishable {
			outcome.Accepted = append(outcome.Accepted, Accepted{
				CandidateID: cand.CandidateID,
				Entry:       draft,
			})
			ctx.claim(draft)
		} else {
			for _, reason := range reasons {
				outcome.Histogram[reason]++
			}
		}
	}
	return outcome
}

func evaluateOne(cand candidate.Candidate, ctx *runContext, cfg config.Publisher) (bool, []string, store.Entry) {
	reasons := []string{}

	if cand.Decision.Key != extract.DecisionCandidateReady.Key {
		reasons = append(reasons, ReasonNotCandidateReady)
	}
	if cand.Confidence < cfg.MinConfidence {
		reasons = append(reasons, ReasonConfidenceTooLow)
	}
	if cand.CandidateType != candidate.TypeNewEntry {
		if !(cand.CandidateType == candidate.TypeEvidenceUpdate && cfg.AllowEvidenceUpdateAutoApply) {
			reasons = append(reasons, ReasonTypeNotPublishable)
		}
	}
	if cand.DuplicateSignals.SourceURLAlreadyUsed {
		reasons = append(reasons, ReasonSourceURLUsed)
	}
	if cand.DuplicateSignals.LinkedExistingEntries && !cfg.AllowEvidenceUpdateAutoApply {
		reasons = append(reasons, ReasonLinkedExistingEntry)
	}
	if cfg.RequireCompleteSuggestedEntry && !completeEntry(cand.SuggestedEntry) {
		reasons = append(reasons, ReasonSuggestedIncomplete)
	}

	draft := cand.SuggestedEntry
	if strings.TrimSpace(draft.ID) == "" {
		draft.ID = synthesizeID(cand)
	}
	if _, exists := ctx.entryIDs[draft.ID]; exists {
		reasons = append(reasons, ReasonEntryIDExists)
	}
	for _, src := range draft.Sources {
		if src.URL == "" {
			continue
		}
		if _, exists := ctx.sourceURLs[src.URL]; exists {
			reasons = append(reasons, ReasonEntrySourceURLExists)
			break
		}
	}

	// AutoApplyEnabled=false is plan-only mode: nothing publishes, even a
	// candidate with zero failing reasons.
	publishable := cfg.AutoApplyEnabled && len(reasons) == 0
	return publishable, reasons, draft
}

// completeEntry requires every string field non-empty, at least one tag
// and at least one source with both label and URL.
func completeEntry(entry store.Entry) bool {
	for _, value := range []string{
		entry.Work, entry.Medium, entry.ItemTitle, entry.Classification,
		entry.Status, entry.FirstAppearance, entry.FactShown,
		entry.FactAfter, entry.Evaluation, entry.Note,
	} {
		if strings.TrimSpace(value) == "" {
			return false
		}
	}
	if len(entry.Tags) == 0 {
		return false
	}
	for _, tag := range entry.Tags {
		if strings.TrimSpace(tag) == "" {
			return false
		}
	}
	if len(entry.Sources) == 0 {
		return false
	}
	for _, src := range entry.Sources {
		if strings.TrimSpace(src.Label) == "" || strings.TrimSpace(src.URL) == "" {
			return false
		}
	}
	return true
}

// synthesizeID derives a stable entry id from the suggested work and
// title, falling back to the source id.
func synthesizeID(cand candidate.Candidate) string {
	base := strings.Trim(
		candidate.Slugify(cand.SuggestedEntry.Work)+"-"+candidate.Slugify(cand.SuggestedEntry.ItemTitle),
		"-",
	)
	if base != "" {
		if len(base) > 96 {
			base = base[:96]
		}
		return base
	}
	fallback := cand.SourceID
	if fallback == "" {
		fallback = cand.CandidateID
	}
	if fallback == "" {
		fallback = "candidate"
	}
	return "auto-" + candidate.Slugify(fallback)
}
