// Package policy decides whether the pipeline may fetch a target URL and
// how long it must wait between requests, consulting domain allow/deny
// lists and cached robots.txt rules.
package policy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Rejection reasons recorded in snapshot policy blocks.
const (
	ReasonDomainBlocked   = "domain_blocked_by_policy"
	ReasonBlockedByRobots = "blocked_by_robots"
)

const maxRobotsBytes = 1 << 20

// Config carries the policy-relevant slice of the fetch configuration.
type Config struct {
	RespectRobotsTxt  bool
	RespectCrawlDelay bool
	AllowDomains      []string
	DenyDomains       []string
	BaseDelay         time.Duration
	UserAgent         string
	RequestTimeout    time.Duration
}

// Decision is the outcome for one target URL. It is computed fresh per
// target and persisted with the snapshot for auditing.
type Decision struct {
	Allowed            bool     `json:"allowed"`
	Reason             string   `json:"reason,omitempty"`
	EffectiveDelayMs   int      `json:"effectiveDelayMs"`
	RobotsGroupMatched string   `json:"robotsGroupMatched,omitempty"`
	CrawlDelaySec      *float64 `json:"crawlDelaySec,omitempty"`
}

// EffectiveDelay returns the inter-item delay as a duration.
func (d Decision) EffectiveDelay() time.Duration {
	return time.Duration(d.EffectiveDelayMs) * time.Millisecond
}

// Engine evaluates fetch policy for one pipeline run. The robots cache is
// scoped to the engine instance, never a process-wide singleton.
type Engine struct {
	cfg    Config
	client *http.Client
	allow  *DomainList
	deny   *DomainList
	robots map[string][]robotsGroup // origin -> parsed groups; nil value = unusable (fail-open)
	logger *zap.Logger
}

// NewEngine builds an Engine for a single run.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		allow:  NewDomainList(cfg.AllowDomains),
		deny:   NewDomainList(cfg.DenyDomains),
		robots: make(map[string][]robotsGroup),
		logger: logger,
	}
}

// Decide evaluates a target URL against the domain lists and, when robots
// compliance is on, the origin's robots.txt rules. The domain check fails
// closed; a robots fetch or parse failure fails open.
func (e *Engine) Decide(ctx context.Context, rawURL string) (Decision, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Decision{}, fmt.Errorf("parse target url %q: %w", rawURL, err)
	}
	host := parsed.Hostname()
	baseDelayMs := int(e.cfg.BaseDelay / time.Millisecond)

	if e.deny.Matches(host) {
		return Decision{Allowed: false, Reason: ReasonDomainBlocked, EffectiveDelayMs: baseDelayMs}, nil
	}
	if !e.allow.Empty() && !e.allow.Matches(host) {
		return Decision{Allowed: false, Reason: ReasonDomainBlocked, EffectiveDelayMs: baseDelayMs}, nil
	}

	if !e.cfg.RespectRobotsTxt {
		return Decision{Allowed: true, EffectiveDelayMs: baseDelayMs}, nil
	}

	groups := e.robotsFor(ctx, parsed)
	group, agent := selectGroup(groups, e.cfg.UserAgent)
	if group == nil {
		return Decision{Allowed: true, EffectiveDelayMs: baseDelayMs}, nil
	}

	decision := Decision{
		EffectiveDelayMs:   baseDelayMs,
		RobotsGroupMatched: agent,
		CrawlDelaySec:      group.crawlDelay,
	}
	if !group.pathAllowed(pathAndQuery(parsed)) {
		decision.Allowed = false
		decision.Reason = ReasonBlockedByRobots
		return decision, nil
	}
	decision.Allowed = true
	if e.cfg.RespectCrawlDelay && group.crawlDelay != nil {
		crawlDelayMs := int(*group.crawlDelay * 1000)
		if crawlDelayMs > decision.EffectiveDelayMs {
			decision.EffectiveDelayMs = crawlDelayMs
		}
	}
	return decision, nil
}

// robotsFor returns the parsed robots groups for the URL's origin, fetching
// and caching them on first use. Failures are cached as nil so an
// unreachable robots file is probed once per run, then treated as
// unrestricted.
func (e *Engine) robotsFor(ctx context.Context, target *url.URL) []robotsGroup {
	origin := strings.ToLower(target.Scheme + "://" + target.Host)
	if groups, ok := e.robots[origin]; ok {
		return groups
	}

	groups, err := e.fetchRobots(ctx, target)
	if err != nil {
		e.logger.Warn("robots fetch failed; proceeding without restrictions",
			zap.String("origin", origin), zap.Error(err))
		groups = nil
	}
	e.robots[origin] = groups
	return groups
}

func (e *Engine) fetchRobots(ctx context.Context, target *url.URL) ([]robotsGroup, error) {
	robotsURL := url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Debug("close robots body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("robots status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	return parseRobots(string(body)), nil
}

func pathAndQuery(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
