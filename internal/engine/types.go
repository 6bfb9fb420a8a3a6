package engine

import "strings"

// RepoName identifies one repository as "owner/name".
type RepoName string

// Name returns the part after the owner.
func (r RepoName) Name() string {
	s := string(r)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// RepositorySet is the fetched list of repositories in listing order.
// Duplicates are kept as returned by the hosting service.
type RepositorySet []RepoName

func (s RepositorySet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}
