// Package config loads and validates the automation configuration
// (automation.config.json) via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob of the curation pipeline.
type Config struct {
	Version    int        `mapstructure:"version"`
	Deployment Deployment `mapstructure:"deployment"`
	Schedule   Schedule   `mapstructure:"schedule"`
	Fetch      Fetch      `mapstructure:"fetch"`
	Scoring    Scoring    `mapstructure:"scoring"`
	Publisher  Publisher  `mapstructure:"publisher"`
}

// Deployment names the hosting provider the static site deploys to.
type Deployment struct {
	Provider string `mapstructure:"provider"`
}

// Schedule holds the daily automation cron expression.
type Schedule struct {
	DailyCron string `mapstructure:"dailyCron"`
}

// Fetch governs the policy engine and snapshot fetcher.
type Fetch struct {
	DefaultDelayMs    int      `mapstructure:"defaultDelayMs"`
	RequestTimeoutMs  int      `mapstructure:"requestTimeoutMs"`
	UserAgent         string   `mapstructure:"userAgent"`
	RespectRobotsTxt  bool     `mapstructure:"respectRobotsTxt"`
	RespectCrawlDelay bool     `mapstructure:"respectCrawlDelay"`
	AllowDomains      []string `mapstructure:"allowDomains"`
	DenyDomains       []string `mapstructure:"denyDomains"`
	MaxBodyChars      int      `mapstructure:"maxBodyChars"`
}

// DefaultDelay returns the inter-item delay as a duration.
func (f Fetch) DefaultDelay() time.Duration {
	return time.Duration(f.DefaultDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout as a duration.
func (f Fetch) RequestTimeout() time.Duration {
	return time.Duration(f.RequestTimeoutMs) * time.Millisecond
}

// Scoring holds the confidence thresholds that map scores to decision tiers.
type Scoring struct {
	Thresholds Thresholds `mapstructure:"thresholds"`
}

// Thresholds are inclusive minimum confidences per tier.
type Thresholds struct {
	CandidateReadyMin int `mapstructure:"candidateReadyMin" json:"candidateReadyMin"`
	NeedsReviewMin    int `mapstructure:"needsReviewMin" json:"needsReviewMin"`
}

// Publisher governs the publish gate.
type Publisher struct {
	AutoApplyEnabled              bool `mapstructure:"autoApplyEnabled"`
	AllowEvidenceUpdateAutoApply  bool `mapstructure:"allowEvidenceUpdateAutoApply"`
	MinConfidence                 int  `mapstructure:"minConfidence"`
	RequireCompleteSuggestedEntry bool `mapstructure:"requireCompleteSuggestedEntry"`
}

// Load builds a Config from the JSON document at path, failing on the
// first validation problem.
func Load(path string) (Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadUnvalidated reads the document without validating it, for the
// validator command that wants to report every problem at once.
func LoadUnvalidated(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.defaultDelayMs", 1000)
	v.SetDefault("fetch.requestTimeoutMs", 10000)
	v.SetDefault("fetch.userAgent", "lostspecs-fetcher/0.4 (+https://lostspecs.example)")
	v.SetDefault("fetch.respectRobotsTxt", true)
	v.SetDefault("fetch.respectCrawlDelay", true)
	v.SetDefault("fetch.maxBodyChars", 200000)
	v.SetDefault("scoring.thresholds.candidateReadyMin", 90)
	v.SetDefault("scoring.thresholds.needsReviewMin", 60)
	v.SetDefault("publisher.autoApplyEnabled", false)
	v.SetDefault("publisher.allowEvidenceUpdateAutoApply", false)
	v.SetDefault("publisher.minConfidence", 95)
	v.SetDefault("publisher.requireCompleteSuggestedEntry", true)
}

// Validate returns the first violation found. It backs Load, which must
// abort before any file or network I/O happens on bad configuration.
func (c Config) Validate() error {
	if problems := c.Problems(); len(problems) > 0 {
		return fmt.Errorf("%s", problems[0])
	}
	return nil
}

// Problems collects every configuration violation, for the validator
// command that reports all issues in a single pass.
func (c Config) Problems() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Version <= 0 {
		add("version must be a positive integer")
	}
	if c.Deployment.Provider != "vercel" {
		add("deployment.provider must be 'vercel', got %q", c.Deployment.Provider)
	}
	if fields := strings.Fields(c.Schedule.DailyCron); len(fields) != 5 {
		add("schedule.dailyCron must be a 5-field cron expression, got %q", c.Schedule.DailyCron)
	}
	if c.Fetch.DefaultDelayMs < 0 {
		add("fetch.defaultDelayMs must be >= 0, got %d", c.Fetch.DefaultDelayMs)
	}
	if c.Fetch.RequestTimeoutMs < 1000 {
		add("fetch.requestTimeoutMs must be >= 1000, got %d", c.Fetch.RequestTimeoutMs)
	}
	if len(strings.TrimSpace(c.Fetch.UserAgent)) < 8 {
		add("fetch.userAgent must be at least 8 characters")
	}
	if c.Fetch.MaxBodyChars <= 0 {
		add("fetch.maxBodyChars must be > 0, got %d", c.Fetch.MaxBodyChars)
	}

	t := c.Scoring.Thresholds
	if t.NeedsReviewMin < 0 || t.NeedsReviewMin > t.CandidateReadyMin || t.CandidateReadyMin > 100 {
		add("scoring.thresholds must satisfy 0 <= needsReviewMin <= candidateReadyMin <= 100, got %d/%d",
			t.NeedsReviewMin, t.CandidateReadyMin)
	}

	if c.Publisher.MinConfidence < 0 || c.Publisher.MinConfidence > 100 {
		add("publisher.minConfidence must be in 0..100, got %d", c.Publisher.MinConfidence)
	}
	return problems
}
