package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	ProviderGitea  = "gitea"
	ProviderGitHub = "github"

	BackendDocker = "docker"
	BackendLocal  = "local"

	DefaultImage       = "renovate/renovate:35.19.2"
	DefaultConfigFile  = "config.json"
	DefaultConfigMount = "/opts/renovate/config.json"
	DefaultBinary      = "renovate"
	DefaultPageSize    = 50

	// Server-side page caps: Gitea's default MAX_RESPONSE_ITEMS and GitHub's per_page limit.
	MaxGiteaPageSize  = 50
	MaxGitHubPageSize = 100
	DefaultWorkers     = 3
	DefaultCooldown    = 2 * time.Second
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli/sweep.go
	// - the YAML mapping in file.go (ApplyFile)
	Hosting Hosting
	Runner  Runner
	Runtime Runtime
	Logging Logging
}

type Hosting struct {
	// Provider selects the hosting service API (see --provider).
	// Allowed values: gitea, github.
	Provider string

	// Endpoint is the hosting service base URL (see --endpoint).
	// Required for gitea. For github it selects a GitHub Enterprise host; empty means github.com.
	// A bare host name is accepted and treated as https.
	Endpoint string

	// Org limits discovery to one organization (see --org).
	// Empty means every repository visible to the credential.
	Org string

	// PageSize is the number of repositories requested per listing page (see --page-size).
	PageSize int

	// Include keeps only repositories matching at least one pattern (see --include).
	// Go path.Match style; if a pattern contains '/', it matches OWNER/REPO, else the repo name.
	Include []string

	// Exclude drops repositories matching any pattern (see --exclude). Same matching rules as Include.
	Exclude []string

	// DryRun prints the shuffled dispatch order without running any job (see --dry-run).
	DryRun bool
}

type Runner struct {
	// Backend selects how jobs are executed (see --runner).
	// Allowed values: docker, local.
	Backend string

	// Image is the container image used by the docker backend (see --image).
	Image string

	// Entrypoint overrides the image entrypoint (see --entrypoint). Empty keeps the image default.
	Entrypoint []string

	// ConfigFile is the host path of the Renovate config file (see --renovate-config).
	ConfigFile string

	// ConfigMount is where ConfigFile is mounted inside the container (see --renovate-config-mount).
	ConfigMount string

	// Binary is the executable run by the local backend (see --renovate-binary).
	Binary string

	// Platform, Endpoint and LogLevel are passed to Renovate as RENOVATE_PLATFORM,
	// RENOVATE_ENDPOINT and LOG_LEVEL when non-empty.
	Platform string
	Endpoint string
	LogLevel string
}

type Runtime struct {
	// Workers is the fixed number of concurrent jobs (see --workers). Must be >= 1.
	Workers int

	// Cooldown is the pause a worker takes after each job (see --cooldown). Must be >= 0.
	Cooldown time.Duration

	// Pushgateway is the Prometheus Pushgateway URL metrics are pushed to when the run ends
	// (see --pushgateway). Empty disables pushing.
	Pushgateway string

	// EnvFile is a dotenv file loaded before secrets are resolved (see --env-file).
	EnvFile string

	// Verbose logs every hosting API call.
	Verbose bool
}

type Logging struct {
	// Level is the minimum log level (see --log-level).
	// Allowed values: debug, info, warn, error.
	Level string

	// Format selects the log encoding (see --log-format).
	// Allowed values: console, json.
	Format string
}

func New() *Config {
	return &Config{
		Hosting: Hosting{
			Provider: ProviderGitea,
			PageSize: DefaultPageSize,
		},
		Runner: Runner{
			Backend:     BackendDocker,
			Image:       DefaultImage,
			ConfigFile:  DefaultConfigFile,
			ConfigMount: DefaultConfigMount,
			Binary:      DefaultBinary,
		},
		Runtime: Runtime{
			Workers:  DefaultWorkers,
			Cooldown: DefaultCooldown,
			EnvFile:  ".env",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Hosting.Include = splitCommaList(c.Hosting.Include)
	c.Hosting.Exclude = splitCommaList(c.Hosting.Exclude)

	// Hosting validation
	c.Hosting.Provider = normalizeEnumValue(c.Hosting.Provider)
	if c.Hosting.Provider == "" {
		c.Hosting.Provider = ProviderGitea
	}
	if c.Hosting.Provider != ProviderGitea && c.Hosting.Provider != ProviderGitHub {
		return fmt.Errorf("unsupported --provider: %s (must be one of: gitea, github)", c.Hosting.Provider)
	}

	endpoint, err := normalizeEndpoint(c.Hosting.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid --endpoint value: %w", err)
	}
	c.Hosting.Endpoint = endpoint
	if c.Hosting.Provider == ProviderGitea && c.Hosting.Endpoint == "" {
		return errors.New("--endpoint is required for the gitea provider")
	}

	c.Hosting.Org = strings.Trim(strings.TrimSpace(c.Hosting.Org), "/")
	if strings.Contains(c.Hosting.Org, "/") {
		return fmt.Errorf("invalid --org value %q: expected an organization name", c.Hosting.Org)
	}

	if c.Hosting.PageSize <= 0 {
		return errors.New("--page-size must be >= 1")
	}
	// A page larger than the server cap comes back short and ends pagination early.
	if limit := MaxPageSize(c.Hosting.Provider); c.Hosting.PageSize > limit {
		return fmt.Errorf("--page-size must be <= %d for the %s provider, got %d", limit, c.Hosting.Provider, c.Hosting.PageSize)
	}

	for _, p := range append(append([]string{}, c.Hosting.Include...), c.Hosting.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	// Runner validation
	c.Runner.Backend = normalizeEnumValue(c.Runner.Backend)
	if c.Runner.Backend == "" {
		c.Runner.Backend = BackendDocker
	}
	switch c.Runner.Backend {
	case BackendDocker:
		c.Runner.Image = strings.TrimSpace(c.Runner.Image)
		if c.Runner.Image == "" {
			return errors.New("--image must not be empty for the docker runner")
		}
		c.Runner.ConfigMount = strings.TrimSpace(c.Runner.ConfigMount)
		if !strings.HasPrefix(c.Runner.ConfigMount, "/") {
			return fmt.Errorf("--renovate-config-mount must be an absolute container path, got %q", c.Runner.ConfigMount)
		}
	case BackendLocal:
		c.Runner.Binary = strings.TrimSpace(c.Runner.Binary)
		if c.Runner.Binary == "" {
			return errors.New("--renovate-binary must not be empty for the local runner")
		}
	default:
		return fmt.Errorf("unsupported --runner: %s (must be one of: docker, local)", c.Runner.Backend)
	}

	c.Runner.ConfigFile = strings.TrimSpace(c.Runner.ConfigFile)
	if c.Runner.ConfigFile == "" {
		return errors.New("--renovate-config must not be empty")
	}

	// Runtime validation
	if c.Runtime.Workers <= 0 {
		return errors.New("--workers must be >= 1")
	}
	if c.Runtime.Cooldown < 0 {
		return errors.New("--cooldown must be >= 0")
	}
	if c.Runtime.Pushgateway != "" {
		u, err := url.Parse(c.Runtime.Pushgateway)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid --pushgateway value %q: expected an absolute URL", c.Runtime.Pushgateway)
		}
	}

	// Logging validation
	c.Logging.Level = normalizeEnumValue(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported --log-level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
	}

	c.Logging.Format = normalizeEnumValue(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("unsupported --log-format: %s (must be one of: console, json)", c.Logging.Format)
	}

	return nil
}

// MaxPageSize returns the largest page the provider serves in one response.
func MaxPageSize(provider string) int {
	if provider == ProviderGitHub {
		return MaxGitHubPageSize
	}
	return MaxGiteaPageSize
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// normalizeEndpoint accepts a bare host ("git.example.com"), a host with a path,
// or a full http(s) URL, and returns a URL without a trailing slash.
func normalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if strings.Contains(raw, "://") {
			return "", fmt.Errorf("%q: only http and https are supported", raw)
		}
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%q", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/"), nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
