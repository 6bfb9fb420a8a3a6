package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"code.gitea.io/sdk/gitea"
)

const userAgent = "renovateshard"

// GiteaLister lists repositories through the Gitea API (/api/v1/user/repos,
// or /api/v1/orgs/{org}/repos when an org is configured).
type GiteaLister struct {
	client *gitea.Client
	org    string
	budget *RateBudget

	// gitea.Client carries a single request context; serialize pages.
	mu sync.Mutex
}

func NewGiteaLister(cfg ListerConfig, budget *RateBudget) (*GiteaLister, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("gitea: endpoint is required")
	}

	httpClient := NewHTTPClient(
		WithVerbose(cfg.Verbose, cfg.Logger),
		WithTransport(cfg.Transport),
	)
	client, err := gitea.NewClient(cfg.Endpoint,
		gitea.SetHTTPClient(httpClient),
		gitea.SetToken(cfg.Token),
		gitea.SetUserAgent(userAgent),
		// Skip the /version probe at construction.
		gitea.SetGiteaVersion(""),
	)
	if err != nil {
		return nil, fmt.Errorf("gitea: create client: %w", err)
	}

	return &GiteaLister{client: client, org: cfg.Org, budget: budget}, nil
}

func (l *GiteaLister) ListPage(ctx context.Context, page, perPage int) ([]string, error) {
	if err := l.budget.Wait(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.client.SetContext(ctx)

	opts := gitea.ListOptions{Page: page, PageSize: perPage}
	var (
		repos []*gitea.Repository
		resp  *gitea.Response
		err   error
	)
	if l.org != "" {
		repos, resp, err = l.client.ListOrgRepos(l.org, gitea.ListOrgReposOptions{ListOptions: opts})
	} else {
		repos, resp, err = l.client.ListMyRepos(gitea.ListReposOptions{ListOptions: opts})
	}
	if resp != nil {
		l.budget.Observe(resp.Response)
	}
	if err != nil {
		return nil, fmt.Errorf("gitea: list repositories: %w", err)
	}

	names := make([]string, 0, len(repos))
	for _, r := range repos {
		if r == nil {
			continue
		}
		name := r.FullName
		if name == "" && r.Owner != nil {
			name = r.Owner.UserName + "/" + r.Name
		}
		names = append(names, name)
	}
	return names, nil
}
