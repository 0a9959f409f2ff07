package policy

import (
	"strconv"
	"strings"
)

// robotsRule is one Allow/Disallow line: a path prefix and its verdict.
type robotsRule struct {
	path  string
	allow bool
}

// robotsGroup is a run of User-Agent lines and the directives that follow.
type robotsGroup struct {
	agents     []string
	rules      []robotsRule
	crawlDelay *float64
}

// parseRobots splits a robots.txt body into user-agent groups. A new group
// starts at each User-Agent line that follows a consumed directive; several
// consecutive User-Agent lines share one group.
func parseRobots(body string) []robotsGroup {
	var groups []robotsGroup
	cur := -1
	lastWasAgent := false

	for _, line := range strings.Split(body, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if cur < 0 || !lastWasAgent {
				groups = append(groups, robotsGroup{})
				cur = len(groups) - 1
			}
			groups[cur].agents = append(groups[cur].agents, value)
			lastWasAgent = true
		case "disallow", "allow":
			lastWasAgent = false
			// An empty path means "no restriction" and never matches.
			if cur < 0 || value == "" {
				continue
			}
			groups[cur].rules = append(groups[cur].rules, robotsRule{
				path:  value,
				allow: key == "allow",
			})
		case "crawl-delay":
			lastWasAgent = false
			if cur < 0 {
				continue
			}
			if delay, err := strconv.ParseFloat(value, 64); err == nil && delay >= 0 {
				groups[cur].crawlDelay = &delay
			}
		default:
			lastWasAgent = false
		}
	}
	return groups
}

// agentSpecificity scores how specifically a declared agent token targets
// the configured user-agent string. Higher wins; zero means no match.
func agentSpecificity(token, userAgent string) int {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return 0
	}
	if token == "*" {
		return 1
	}
	ua := strings.ToLower(userAgent)
	leading := ua
	if i := strings.IndexAny(leading, "/ "); i >= 0 {
		leading = leading[:i]
	}
	if strings.Contains(leading, token) {
		return 3
	}
	if strings.Contains(ua, token) {
		return 2
	}
	return 0
}

// selectGroup picks the group whose agents score highest against userAgent.
// Ties keep the first group found; no applicable group returns nil.
func selectGroup(groups []robotsGroup, userAgent string) (*robotsGroup, string) {
	best := -1
	bestScore := 0
	bestAgent := ""
	for i := range groups {
		for _, agent := range groups[i].agents {
			if score := agentSpecificity(agent, userAgent); score > bestScore {
				best = i
				bestScore = score
				bestAgent = agent
			}
		}
	}
	if best < 0 {
		return nil, ""
	}
	return &groups[best], bestAgent
}

// pathAllowed evaluates the group's rules against the request path plus
// query: among matching prefixes the longest wins, an Allow beats a
// Disallow of equal length, and no match means allowed.
func (g *robotsGroup) pathAllowed(pathAndQuery string) bool {
	if g == nil {
		return true
	}
	bestLen := -1
	allowed := true
	for _, rule := range g.rules {
		if !strings.HasPrefix(pathAndQuery, rule.path) {
			continue
		}
		switch {
		case len(rule.path) > bestLen:
			bestLen = len(rule.path)
			allowed = rule.allow
		case len(rule.path) == bestLen && rule.allow:
			allowed = true
		}
	}
	return allowed
}
