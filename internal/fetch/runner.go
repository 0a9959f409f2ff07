package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lostspecs/curator/internal/batch"
	"github.com/lostspecs/curator/internal/config"
	"github.com/lostspecs/curator/internal/policy"
	"github.com/lostspecs/curator/internal/registry"
)

// Options are the fetch stage's command-line knobs.
type Options struct {
	DryRun          bool
	IncludeDisabled bool
	Limit           int // 0 = unlimited
	DelayMs         int // -1 = use configured default
}

// Result reports what a fetch run produced.
type Result struct {
	Batch    batch.ID
	Dir      string
	Manifest Manifest
}

// Runner drives one snapshot run, strictly sequential.
type Runner struct {
	cfg    config.Fetch
	engine *policy.Engine
	base   *colly.Collector
	logger *zap.Logger
	now    func() time.Time
}

// NewRunner wires a runner from the fetch configuration. The policy engine
// and its robots cache live for exactly one run.
func NewRunner(cfg config.Fetch, opts Options, logger *zap.Logger) *Runner {
	baseDelay := cfg.DefaultDelay()
	if opts.DelayMs >= 0 {
		baseDelay = time.Duration(opts.DelayMs) * time.Millisecond
	}
	engine := policy.NewEngine(policy.Config{
		RespectRobotsTxt:  cfg.RespectRobotsTxt,
		RespectCrawlDelay: cfg.RespectCrawlDelay,
		AllowDomains:      cfg.AllowDomains,
		DenyDomains:       cfg.DenyDomains,
		BaseDelay:         baseDelay,
		UserAgent:         cfg.UserAgent,
		RequestTimeout:    cfg.RequestTimeout(),
	}, logger)

	base := colly.NewCollector()
	base.UserAgent = cfg.UserAgent
	base.IgnoreRobotsTxt = true // the policy engine gates requests upstream
	base.ParseHTTPErrorResponse = true
	base.SetRequestTimeout(cfg.RequestTimeout())

	return &Runner{
		cfg:    cfg,
		engine: engine,
		base:   base,
		logger: logger,
		now:    time.Now,
	}
}

// SelectTargets filters, orders and limits registry targets for a run:
// enabled targets (unless includeDisabled), ascending priority, ties by
// Japanese-collated id.
func SelectTargets(items []registry.Target, opts Options) []registry.Target {
	var targets []registry.Target
	for _, item := range items {
		if opts.IncludeDisabled || item.Enabled {
			targets = append(targets, item)
		}
	}
	registry.SortTargets(targets)
	if opts.Limit > 0 && len(targets) > opts.Limit {
		targets = targets[:opts.Limit]
	}
	return targets
}

// Run processes the targets in order and writes a new snapshot batch under
// root. Per-item fetch failures and policy rejections are captured as data;
// only I/O on the batch directory itself is an error.
func (r *Runner) Run(ctx context.Context, root string, targets []registry.Target, opts Options) (*Result, error) {
	if len(targets) == 0 {
		r.logger.Info("no fetch targets selected")
		return nil, nil
	}
	for i, target := range targets {
		r.logger.Info("fetch plan",
			zap.Int("n", i+1),
			zap.Int("priority", target.Priority),
			zap.String("id", target.ID),
			zap.String("url", target.URL))
	}
	if opts.DryRun {
		return nil, nil
	}

	id := batch.New(r.now())
	dir := filepath.Join(root, id.String())
	manifest := Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: r.now().UTC().Format(time.RFC3339),
		Total:     len(targets),
		Policy: PolicySnapshot{
			UserAgent:         r.cfg.UserAgent,
			RespectRobotsTxt:  r.cfg.RespectRobotsTxt,
			RespectCrawlDelay: r.cfg.RespectCrawlDelay,
			AllowDomains:      r.cfg.AllowDomains,
			DenyDomains:       r.cfg.DenyDomains,
			DefaultDelayMs:    r.cfg.DefaultDelayMs,
			RequestTimeoutMs:  r.cfg.RequestTimeoutMs,
			MaxBodyChars:      r.cfg.MaxBodyChars,
		},
	}

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch run canceled: %w", err)
		}
		snap := r.fetchOne(ctx, target)
		switch {
		case snap.Skipped:
			manifest.Skipped++
		case snap.OK:
			manifest.Success++
		default:
			manifest.Failure++
		}
		manifest.Items = append(manifest.Items, ManifestItem{ID: target.ID, URL: target.URL})

		file := filepath.Join(dir, batch.SafeFileName(target.ID)+".json")
		if err := batch.WriteJSON(file, snap); err != nil {
			return nil, err
		}
		r.logSnapshot(i+1, len(targets), target, snap)

		if i < len(targets)-1 {
			delay := r.cfg.DefaultDelay()
			if snap.Policy != nil {
				delay = snap.Policy.EffectiveDelay()
			}
			pause(ctx, delay)
		}
	}

	if err := batch.WriteJSON(filepath.Join(dir, "_manifest.json"), manifest); err != nil {
		return nil, err
	}
	r.logger.Info("fetch completed",
		zap.String("batch", id.String()),
		zap.Int("success", manifest.Success),
		zap.Int("failure", manifest.Failure),
		zap.Int("skipped", manifest.Skipped))
	return &Result{Batch: id, Dir: dir, Manifest: manifest}, nil
}

// fetchOne consults the policy engine and, when allowed, issues a single
// GET. Every outcome becomes a snapshot record.
func (r *Runner) fetchOne(ctx context.Context, target registry.Target) Snapshot {
	startedAt := r.now().UTC().Format(time.RFC3339)
	snap := Snapshot{
		SourceID:  target.ID,
		URL:       target.URL,
		StartedAt: startedAt,
	}

	decision, err := r.engine.Decide(ctx, target.URL)
	if err != nil {
		snap.FetchedAt = r.now().UTC().Format(time.RFC3339)
		snap.Error = err.Error()
		return snap
	}
	snap.Policy = &decision

	if !decision.Allowed {
		snap.Skipped = true
		snap.FetchedAt = r.now().UTC().Format(time.RFC3339)
		snap.Error = "skipped: " + decision.Reason
		return snap
	}

	collector := r.base.Clone()
	var fetchErr error
	collector.OnResponse(func(resp *colly.Response) {
		status := resp.StatusCode
		snap.Status = &status
		snap.OK = status >= 200 && status < 300
		snap.ContentType = resp.Headers.Get("Content-Type")
		snap.FinalURL = resp.Request.URL.String()
		body := truncateChars(string(resp.Body), r.cfg.MaxBodyChars)
		snap.Body = &body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(target.URL); err != nil {
		fetchErr = err
	}
	collector.Wait()

	snap.FetchedAt = r.now().UTC().Format(time.RFC3339)
	if snap.Status == nil && fetchErr != nil {
		snap.Error = fetchErr.Error()
	}
	return snap
}

func (r *Runner) logSnapshot(n, total int, target registry.Target, snap Snapshot) {
	fields := []zap.Field{
		zap.String("progress", fmt.Sprintf("%d/%d", n, total)),
		zap.String("id", target.ID),
	}
	switch {
	case snap.Skipped:
		r.logger.Info("target skipped", append(fields, zap.String("reason", snap.Policy.Reason))...)
	case snap.Error != "":
		r.logger.Warn("fetch failed", append(fields, zap.String("error", snap.Error))...)
	default:
		r.logger.Info("fetched", append(fields, zap.Intp("status", snap.Status))...)
	}
}

// pause waits for the inter-item delay, aborting early on cancellation.
func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// truncateChars limits a body to max characters, respecting rune
// boundaries.
func truncateChars(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
