// Package runner executes one Renovate job against one repository.
package runner

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"renovateshard/internal/config"
	"time"

	"github.com/rs/zerolog"
)

// Environment passed to every job.
const (
	EnvGitHubComToken     = "GITHUB_COM_TOKEN"
	EnvRenovateSecrets    = "RENOVATE_SECRETS"
	EnvRenovateConfigFile = "RENOVATE_CONFIG_FILE"
	EnvRenovateToken      = "RENOVATE_TOKEN"
	EnvRenovatePlatform   = "RENOVATE_PLATFORM"
	EnvRenovateEndpoint   = "RENOVATE_ENDPOINT"
	EnvLogLevel           = "LOG_LEVEL"
)

// outputField names the log field carrying one line of job output.
const outputField = "output"

// Job is a single Renovate invocation.
type Job struct {
	// Repo is passed as the only positional argument.
	Repo string

	// Env is owned by the job; runners may not retain it.
	Env map[string]string

	// ConfigFile is the host path of the Renovate config file.
	ConfigFile string
}

// Result is the outcome of a job that ran to completion.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner runs a job synchronously. An error means the job could not be run
// (or was interrupted); a non-zero Result.ExitCode with a nil error means the
// job ran and failed.
type Runner interface {
	Run(ctx context.Context, job Job) (Result, error)
}

// Func adapts a function to Runner.
type Func func(ctx context.Context, job Job) (Result, error)

func (f Func) Run(ctx context.Context, job Job) (Result, error) {
	return f(ctx, job)
}

// New returns the Runner for cfg.Backend.
func New(cfg config.Runner, logger zerolog.Logger) (Runner, error) {
	switch cfg.Backend {
	case config.BackendDocker, "":
		return NewContainerRunner(cfg, logger), nil
	case config.BackendLocal:
		return NewLocalRunner(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported runner backend %q", cfg.Backend)
	}
}

// Template holds the job settings shared by every repository. It is built
// once and never mutated; For hands each job its own env map.
type Template struct {
	configFile string
	env        map[string]string
}

// NewTemplate prepares the static part of every job. RENOVATE_CONFIG_FILE
// points at the container mount for the docker backend and at the absolute
// host path for the local backend.
func NewTemplate(cfg config.Runner) (*Template, error) {
	hostPath, err := filepath.Abs(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("resolve renovate config path: %w", err)
	}

	configFile := cfg.ConfigMount
	if cfg.Backend == config.BackendLocal {
		configFile = hostPath
	}

	env := map[string]string{EnvRenovateConfigFile: configFile}
	if cfg.Platform != "" {
		env[EnvRenovatePlatform] = cfg.Platform
	}
	if cfg.Endpoint != "" {
		env[EnvRenovateEndpoint] = cfg.Endpoint
	}
	if cfg.LogLevel != "" {
		env[EnvLogLevel] = cfg.LogLevel
	}

	return &Template{configFile: hostPath, env: env}, nil
}

// For builds the job for repo. It fails with a *config.ConfigurationError
// when a secret the job needs is missing.
func (t *Template) For(repo string, secrets config.Secrets) (Job, error) {
	if err := secrets.CheckJob(); err != nil {
		return Job{}, err
	}

	env := maps.Clone(t.env)
	env[EnvGitHubComToken] = secrets.GitHubComToken
	env[EnvRenovateSecrets] = secrets.RenovateSecrets
	env[EnvRenovateToken] = secrets.RenovateToken

	return Job{Repo: repo, Env: env, ConfigFile: t.configFile}, nil
}
