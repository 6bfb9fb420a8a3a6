package hosting

import (
	"context"
	"fmt"

	"github.com/google/go-github/v81/github"
)

// GitHubLister lists repositories through the GitHub REST API (/user/repos, or
// /orgs/{org}/repos when an org is configured). A non-empty endpoint selects a
// GitHub Enterprise Server host.
type GitHubLister struct {
	client *github.Client
	org    string
	budget *RateBudget
}

func NewGitHubLister(cfg ListerConfig, budget *RateBudget) (*GitHubLister, error) {
	httpClient := NewHTTPClient(
		WithVerbose(cfg.Verbose, cfg.Logger),
		WithBearerToken(cfg.Token),
		WithTransport(cfg.Transport),
	)

	client := github.NewClient(httpClient)
	client.UserAgent = userAgent
	if cfg.Endpoint != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.Endpoint, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("github: invalid endpoint %q: %w", cfg.Endpoint, err)
		}
	}

	return &GitHubLister{client: client, org: cfg.Org, budget: budget}, nil
}

func (l *GitHubLister) ListPage(ctx context.Context, page, perPage int) ([]string, error) {
	if err := l.budget.Wait(ctx); err != nil {
		return nil, err
	}

	listOpts := github.ListOptions{Page: page, PerPage: perPage}
	var (
		repos []*github.Repository
		resp  *github.Response
		err   error
	)
	if l.org != "" {
		repos, resp, err = l.client.Repositories.ListByOrg(ctx, l.org, &github.RepositoryListByOrgOptions{ListOptions: listOpts})
	} else {
		repos, resp, err = l.client.Repositories.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{ListOptions: listOpts})
	}
	if resp != nil {
		l.budget.Observe(resp.Response)
	}
	if err != nil {
		return nil, fmt.Errorf("github: list repositories: %w", err)
	}

	names := make([]string, 0, len(repos))
	for _, r := range repos {
		name := r.GetFullName()
		if name == "" {
			name = r.GetOwner().GetLogin() + "/" + r.GetName()
		}
		names = append(names, name)
	}
	return names, nil
}
