package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"renovateshard/internal/config"
	"renovateshard/internal/hosting"
	"renovateshard/internal/metrics"
	"renovateshard/internal/runner"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitInterrupted = 2
	ExitFatal       = 3
)

func exitCodeForRun(fatal, interrupted bool) int {
	// Exit code contract:
	// 0 = sweep completed (job failures are logged, not fatal)
	// 2 = interrupted by signal; some repositories may not have been processed
	// 3 = fatal error (sweep did not run)
	if fatal {
		return ExitFatal
	}
	if interrupted {
		return ExitInterrupted
	}
	return ExitOK
}

const pushTimeout = 10 * time.Second

type Engine struct {
	Lister   hosting.PageLister
	Runner   runner.Runner
	Template *runner.Template
	Secrets  config.Secrets
	Metrics  *metrics.Recorder
	Logger   zerolog.Logger

	// RunID groups pushed metrics.
	RunID string

	// Out receives the dry-run dispatch order. Defaults to os.Stdout.
	Out io.Writer

	// shuffle overrides the dispatch shuffle (tests).
	shuffle func(n int, swap func(i, j int))
}

// countingLister counts every listing request.
type countingLister struct {
	hosting.PageLister
	metrics *metrics.Recorder
}

func (l countingLister) ListPage(ctx context.Context, page, perPage int) ([]string, error) {
	l.metrics.ListingRequest()
	return l.PageLister.ListPage(ctx, page, perPage)
}

// Run fetches the repository set, then sweeps it with the worker pool. It
// returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	if e.Lister == nil {
		e.Logger.Error().Msg("no repository lister configured")
		return exitCodeForRun(true, false)
	}

	e.Logger.Info().
		Str("provider", cfg.Hosting.Provider).
		Str("endpoint", cfg.Hosting.Endpoint).
		Str("org", cfg.Hosting.Org).
		Int("workers", cfg.Runtime.Workers).
		Msg("starting renovate sharding")

	repos, err := FetchRepositories(ctx, countingLister{PageLister: e.Lister, metrics: e.Metrics}, cfg.Hosting.PageSize)
	if err != nil {
		if ctx.Err() != nil {
			e.Logger.Warn().Err(err).Msg("interrupted while fetching repositories")
			return exitCodeForRun(false, true)
		}
		e.Logger.Error().Err(err).Msg("failed to fetch repositories")
		return exitCodeForRun(true, false)
	}
	e.Logger.Info().Int("records", len(repos)).Msg("fetched repositories")
	e.Metrics.Discovered(len(repos))

	if len(cfg.Hosting.Include) > 0 || len(cfg.Hosting.Exclude) > 0 {
		repos = FilterRepositories(repos, cfg.Hosting.Include, cfg.Hosting.Exclude)
		e.Logger.Info().Int("records", len(repos)).Msg("filtered repositories")
	}

	if cfg.Hosting.DryRun {
		if err := e.printPlan(repos); err != nil {
			e.Logger.Error().Err(err).Msg("failed to write dispatch order")
			return exitCodeForRun(true, false)
		}
		return exitCodeForRun(false, false)
	}

	pool, err := NewPool(PoolConfig{
		Workers:  cfg.Runtime.Workers,
		Cooldown: cfg.Runtime.Cooldown,
		Runner:   e.Runner,
		Template: e.Template,
		Secrets:  e.Secrets,
		Metrics:  e.Metrics,
		Logger:   e.Logger,
	})
	if err != nil {
		e.Logger.Error().Err(err).Msg("failed to create worker pool")
		return exitCodeForRun(true, false)
	}
	pool.shuffle = e.shuffle

	sweepErr := pool.Sweep(ctx, repos)
	interrupted := sweepErr != nil && (errors.Is(sweepErr, context.Canceled) || errors.Is(sweepErr, context.DeadlineExceeded))
	if interrupted {
		e.Logger.Warn().Err(sweepErr).Msg("renovate sweep interrupted")
	} else {
		e.Logger.Info().Int("records", len(repos)).Msg("done running renovate")
	}

	e.pushMetrics(cfg.Runtime.Pushgateway)

	return exitCodeForRun(sweepErr != nil && !interrupted, interrupted)
}

func (e *Engine) printPlan(repos RepositorySet) error {
	out := e.Out
	if out == nil {
		out = os.Stdout
	}

	dist := NewDistributor(nil, e.Logger)
	if e.shuffle != nil {
		dist.shuffle = e.shuffle
	}
	order := dist.Order(repos)

	bold := color.New(color.Bold)
	if _, err := bold.Fprintf(out, "Dispatch order (%d repositories):\n", len(order)); err != nil {
		return err
	}
	for i, r := range order {
		if _, err := fmt.Fprintf(out, "%4d. %s\n", i+1, r); err != nil {
			return err
		}
	}
	return nil
}

// pushMetrics runs on a fresh context so an interrupted sweep still reports.
func (e *Engine) pushMetrics(url string) {
	if url == "" || e.Metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := e.Metrics.Push(ctx, url, e.RunID); err != nil {
		e.Logger.Warn().Err(err).Msg("failed to push metrics")
		return
	}
	e.Logger.Debug().Str("pushgateway", url).Msg("pushed metrics")
}
