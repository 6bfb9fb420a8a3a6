package engine

import (
	"path"
	"strings"
)

// FilterRepositories keeps repositories matching at least one include
// pattern (when any are given) and none of the exclude patterns. Order is
// preserved. With no patterns the set is returned unchanged.
func FilterRepositories(repos RepositorySet, include, exclude []string) RepositorySet {
	if len(include) == 0 && len(exclude) == 0 {
		return repos
	}

	filtered := make(RepositorySet, 0, len(repos))
	for _, r := range repos {
		fullName := string(r)
		repoName := r.Name()

		// If Include is set, must match at least one
		if len(include) > 0 && !matchesAnyPattern(include, fullName, repoName) {
			continue
		}

		// If Exclude is set, must not match any
		if len(exclude) > 0 && matchesAnyPattern(exclude, fullName, repoName) {
			continue
		}

		filtered = append(filtered, r)
	}
	return filtered
}

func matchesAnyPattern(patterns []string, fullName, repoName string) bool {
	for _, p := range patterns {
		if matchPattern(p, fullName, repoName) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, fullName, repoName string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// If the pattern includes an owner component (contains '/'), match against full name.
	// Otherwise match against repo name only so patterns like "*-service" work across owners.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, fullName)
		return matched
	}
	matched, _ := path.Match(pattern, repoName)
	return matched
}
