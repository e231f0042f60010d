package crawler

import (
	"path"
	"regexp"
	"strings"
)

var versionedEnvRe = regexp.MustCompile(`^(env|venv)[0-9]+$`)

// PathFilter prunes directory entries by their final path segment.
type PathFilter struct {
	deny map[string]struct{}
}

func NewPathFilter(denylist []string) *PathFilter {
	deny := make(map[string]struct{}, len(denylist))
	for _, name := range denylist {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			deny[name] = struct{}{}
		}
	}
	return &PathFilter{deny: deny}
}

func (f *PathFilter) ShouldIgnore(p string) bool {
	name := strings.ToLower(path.Base(strings.TrimRight(p, "/")))
	if _, ok := f.deny[name]; ok {
		return true
	}
	return versionedEnvRe.MatchString(name)
}
