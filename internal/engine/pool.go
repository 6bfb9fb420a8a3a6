package engine

import (
	"context"
	"errors"
	"fmt"
	"renovateshard/internal/config"
	"renovateshard/internal/metrics"
	"renovateshard/internal/runner"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PoolConfig struct {
	Workers  int
	Cooldown time.Duration
	Runner   runner.Runner
	Template *runner.Template
	Secrets  config.Secrets
	Metrics  *metrics.Recorder
	Logger   zerolog.Logger
}

// Pool runs a fixed number of workers over a WorkQueue. No more than Workers
// jobs ever run at the same time.
type Pool struct {
	workers  int
	cooldown time.Duration
	runner   runner.Runner
	template *runner.Template
	secrets  config.Secrets
	metrics  *metrics.Recorder
	logger   zerolog.Logger

	// shuffle overrides the distributor's shuffle (tests).
	shuffle func(n int, swap func(i, j int))
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Runner == nil {
		return nil, errors.New("runner is nil")
	}
	if cfg.Template == nil {
		return nil, errors.New("job template is nil")
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	return &Pool{
		workers:  cfg.Workers,
		cooldown: cfg.Cooldown,
		runner:   cfg.Runner,
		template: cfg.Template,
		secrets:  cfg.Secrets,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}, nil
}

// Sweep dispatches every repository to the workers and returns once the
// distributor and all workers have exited. Job failures are logged, not
// returned; the only error is ctx's when the sweep is interrupted.
func (p *Pool) Sweep(ctx context.Context, repos RepositorySet) error {
	queue := NewWorkQueue(p.workers)
	dist := NewDistributor(queue, p.logger)
	if p.shuffle != nil {
		dist.shuffle = p.shuffle
	}

	var g errgroup.Group
	g.Go(func() error { return dist.Distribute(ctx, repos) })
	for id := 1; id <= p.workers; id++ {
		g.Go(func() error { return p.work(ctx, id, queue) })
	}
	return g.Wait()
}

func (p *Pool) work(ctx context.Context, id int, queue *WorkQueue) error {
	logger := p.logger.With().Int("worker", id).Logger()

	for {
		repo, ok := queue.Receive(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				logger.Info().Msg("worker interrupted")
				return err
			}
			logger.Info().Msg("queue drained, worker done")
			return nil
		}

		p.runJob(ctx, logger, repo)

		if err := sleepCtx(ctx, p.cooldown); err != nil {
			logger.Info().Msg("worker interrupted")
			return err
		}
	}
}

// runJob builds and runs one job. Every failure stays local to the job.
func (p *Pool) runJob(ctx context.Context, logger zerolog.Logger, repo RepoName) {
	logger = logger.With().Str("repo", string(repo)).Logger()

	job, err := p.template.For(string(repo), p.secrets)
	if err != nil {
		logger.Error().Err(err).Msg("job not dispatched")
		p.metrics.JobFinished(metrics.OutcomeSkipped, 0)
		return
	}

	logger.Info().Msg("running renovate")
	done := p.metrics.JobStarted()
	res, err := p.runner.Run(ctx, job)
	done()

	if err != nil || res.ExitCode != 0 {
		failure := &JobFailure{Repo: repo, ExitCode: res.ExitCode, Err: err}
		logger.Warn().Err(failure).Int("exit_code", res.ExitCode).Dur("duration", res.Duration).Msg("renovate job failed")
		p.metrics.JobFinished(metrics.OutcomeFailure, res.Duration)
		return
	}

	logger.Info().Int("exit_code", 0).Dur("duration", res.Duration).Msg("renovate job finished")
	p.metrics.JobFinished(metrics.OutcomeSuccess, res.Duration)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
