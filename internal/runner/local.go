package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"renovateshard/internal/config"
	"renovateshard/internal/logging"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// LocalRunner runs the Renovate CLI installed on the host.
type LocalRunner struct {
	binary string
	logger zerolog.Logger
}

func NewLocalRunner(cfg config.Runner, logger zerolog.Logger) *LocalRunner {
	return &LocalRunner{binary: cfg.Binary, logger: logger}
}

func (r *LocalRunner) Run(ctx context.Context, job Job) (Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.binary, job.Repo)
	cmd.Env = append(os.Environ(), envList(job.Env)...)

	out := &logging.LineWriter{Logger: r.logger.With().Str("repo", job.Repo).Logger(), Field: outputField}
	cmd.Stdout = out
	cmd.Stderr = out
	// Orphaned grandchildren can hold the output pipes open after a kill.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	out.Flush()
	res := Result{Duration: time.Since(start)}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", r.binary, err)
}

// envList renders env as sorted KEY=VALUE entries.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
