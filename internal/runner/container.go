package runner

import (
	"context"
	"errors"
	"fmt"
	"renovateshard/internal/config"
	"renovateshard/internal/logging"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ContainerRunner runs each job in a fresh container of the Renovate image.
type ContainerRunner struct {
	image      string
	entrypoint []string
	mount      string
	logger     zerolog.Logger
}

func NewContainerRunner(cfg config.Runner, logger zerolog.Logger) *ContainerRunner {
	return &ContainerRunner{
		image:      cfg.Image,
		entrypoint: cfg.Entrypoint,
		mount:      cfg.ConfigMount,
		logger:     logger,
	}
}

func (r *ContainerRunner) Run(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	output := newJobOutput(r.logger.With().Str("repo", job.Repo).Logger())

	req := testcontainers.ContainerRequest{
		Image:      r.image,
		Entrypoint: r.entrypoint,
		Cmd:        []string{job.Repo},
		Env:        job.Env,
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      job.ConfigFile,
			ContainerFilePath: r.mount,
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForExit(),
		LogConsumerCfg: &testcontainers.LogConsumerConfig{
			Consumers: []testcontainers.LogConsumer{output},
		},
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	defer func() {
		// Terminate stops log production, so no Accept runs after it returns.
		if termErr := testcontainers.TerminateContainer(ctr); termErr != nil {
			r.logger.Warn().Err(termErr).Str("repo", job.Repo).Msg("failed to remove job container")
		}
		output.Flush()
	}()
	if err != nil {
		return Result{Duration: time.Since(start)}, fmt.Errorf("start container: %w", err)
	}

	state, err := ctr.State(ctx)
	if err != nil {
		return Result{Duration: time.Since(start)}, fmt.Errorf("inspect container: %w", err)
	}
	if state.Running {
		return Result{Duration: time.Since(start)}, errors.New("container still running after wait")
	}

	return Result{ExitCode: state.ExitCode, Duration: time.Since(start)}, nil
}

// jobOutput forwards container output to the log line by line while the
// container runs. Stdout and stderr keep separate partial-line buffers.
type jobOutput struct {
	stdout *logging.LineWriter
	stderr *logging.LineWriter
}

func newJobOutput(logger zerolog.Logger) *jobOutput {
	return &jobOutput{
		stdout: &logging.LineWriter{Logger: logger.With().Str("stream", "stdout").Logger(), Field: outputField},
		stderr: &logging.LineWriter{Logger: logger.With().Str("stream", "stderr").Logger(), Field: outputField},
	}
}

func (o *jobOutput) Accept(l testcontainers.Log) {
	if l.LogType == testcontainers.StderrLog {
		_, _ = o.stderr.Write(l.Content)
		return
	}
	_, _ = o.stdout.Write(l.Content)
}

func (o *jobOutput) Flush() {
	o.stdout.Flush()
	o.stderr.Flush()
}
