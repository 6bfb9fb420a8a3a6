package engine

import (
	"context"
	"renovateshard/internal/config"
	"renovateshard/internal/hosting"
)

// FetchRepositories walks the listing one page at a time, starting at page 1,
// until a page shorter than pageSize (an empty page included) comes back.
// A full final page therefore costs one extra request for the empty page.
//
// Any page error aborts discovery with a *FetchError; no partial set is
// returned.
func FetchRepositories(ctx context.Context, lister hosting.PageLister, pageSize int) (RepositorySet, error) {
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}

	var repos RepositorySet
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}
		names, err := lister.ListPage(ctx, page, pageSize)
		if err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}
		for _, n := range names {
			repos = append(repos, RepoName(n))
		}
		if len(names) < pageSize {
			return repos, nil
		}
	}
}
