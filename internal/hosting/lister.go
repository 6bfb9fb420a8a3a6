// Package hosting talks to the Git hosting service: it builds authenticated
// HTTP clients, resolves the listing credential, paces requests against the
// host's rate limit, and lists repositories one page at a time.
package hosting

import (
	"context"
	"fmt"
	"net/http"
	"renovateshard/internal/config"

	"github.com/rs/zerolog"
)

// PageLister returns one page of repository full names ("owner/name"),
// using 1-based page indexes and the service's default ordering.
type PageLister interface {
	ListPage(ctx context.Context, page, perPage int) ([]string, error)
}

// ListerConfig selects and configures a PageLister.
type ListerConfig struct {
	Provider string
	Endpoint string
	Org      string
	Token    string
	Verbose  bool
	Logger   zerolog.Logger

	// Transport overrides http.DefaultTransport (tests).
	Transport http.RoundTripper
}

// NewLister returns the PageLister for cfg.Provider. All listers share a
// RateBudget so pagination slows down when the host reports exhaustion.
func NewLister(cfg ListerConfig) (PageLister, error) {
	budget := NewRateBudget()
	switch cfg.Provider {
	case config.ProviderGitea, "":
		return NewGiteaLister(cfg, budget)
	case config.ProviderGitHub:
		return NewGitHubLister(cfg, budget)
	default:
		return nil, fmt.Errorf("unsupported hosting provider %q", cfg.Provider)
	}
}
