package policy

import "strings"

// DomainList matches hosts against exact names and suffix wildcards
// ("*.example.org" or ".example.org" both mean any subdomain plus the apex).
type DomainList struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewDomainList compiles the configured patterns. It returns nil for an
// empty pattern set, and a nil list never matches.
func NewDomainList(patterns []string) *DomainList {
	list := &DomainList{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			list.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			list.addSuffix(strings.TrimPrefix(value, "."))
		default:
			list.exact[value] = struct{}{}
		}
	}
	if len(list.exact) == 0 && len(list.suffixes) == 0 {
		return nil
	}
	return list
}

func (l *DomainList) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range l.suffixes {
		if existing == suffix {
			return
		}
	}
	l.suffixes = append(l.suffixes, suffix)
}

// Matches reports whether host matches any pattern in the list.
func (l *DomainList) Matches(host string) bool {
	if l == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if _, ok := l.exact[host]; ok {
		return true
	}
	for _, suffix := range l.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// Empty reports whether the list holds no patterns at all.
func (l *DomainList) Empty() bool {
	return l == nil || (len(l.exact) == 0 && len(l.suffixes) == 0)
}
