package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"renovateshard/internal/config"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
)

func testSecrets() config.Secrets {
	return config.Secrets{
		HostingToken:    "listing",
		RenovateToken:   "renovate-token",
		RenovateSecrets: `{"NPM_TOKEN":"x"}`,
		GitHubComToken:  "ghcom",
	}
}

func TestTemplate_For(t *testing.T) {
	cfg := config.New().Runner
	cfg.Platform = "gitea"
	cfg.Endpoint = "https://git.example.com/api/v1"

	tmpl, err := NewTemplate(cfg)
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}

	job, err := tmpl.For("acme/api", testSecrets())
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}

	if job.Repo != "acme/api" {
		t.Fatalf("Expected repo acme/api, got %q", job.Repo)
	}
	want := map[string]string{
		EnvGitHubComToken:     "ghcom",
		EnvRenovateSecrets:    `{"NPM_TOKEN":"x"}`,
		EnvRenovateConfigFile: config.DefaultConfigMount,
		EnvRenovateToken:      "renovate-token",
		EnvRenovatePlatform:   "gitea",
		EnvRenovateEndpoint:   "https://git.example.com/api/v1",
	}
	for k, v := range want {
		if got := job.Env[k]; got != v {
			t.Fatalf("Expected %s=%q, got %q", k, v, got)
		}
	}
	if _, ok := job.Env[EnvLogLevel]; ok {
		t.Fatalf("Expected %s to be unset", EnvLogLevel)
	}
	if !filepath.IsAbs(job.ConfigFile) || filepath.Base(job.ConfigFile) != config.DefaultConfigFile {
		t.Fatalf("Expected absolute host config path, got %q", job.ConfigFile)
	}
}

func TestTemplate_ForClonesEnv(t *testing.T) {
	tmpl, err := NewTemplate(config.New().Runner)
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}

	a, err := tmpl.For("acme/a", testSecrets())
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}
	a.Env[EnvRenovateToken] = "mutated"
	a.Env["EXTRA"] = "1"

	b, err := tmpl.For("acme/b", testSecrets())
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}
	if b.Env[EnvRenovateToken] != "renovate-token" {
		t.Fatalf("Expected template to be unaffected by job mutation, got %q", b.Env[EnvRenovateToken])
	}
	if _, ok := b.Env["EXTRA"]; ok {
		t.Fatalf("Expected EXTRA not to leak between jobs")
	}
}

func TestTemplate_LocalBackendUsesHostPath(t *testing.T) {
	cfg := config.New().Runner
	cfg.Backend = config.BackendLocal
	cfg.ConfigFile = "renovate/config.json"

	tmpl, err := NewTemplate(cfg)
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}
	job, err := tmpl.For("acme/api", testSecrets())
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}
	if job.Env[EnvRenovateConfigFile] != job.ConfigFile {
		t.Fatalf("Expected %s to be the host path %q, got %q", EnvRenovateConfigFile, job.ConfigFile, job.Env[EnvRenovateConfigFile])
	}
}

func TestTemplate_ForMissingSecret(t *testing.T) {
	tmpl, err := NewTemplate(config.New().Runner)
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}

	s := testSecrets()
	s.RenovateSecrets = ""
	_, err = tmpl.For("acme/api", s)

	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *config.ConfigurationError, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != config.EnvRenovateSecrets {
		t.Fatalf("Expected missing [%s], got %v", config.EnvRenovateSecrets, cfgErr.Missing)
	}
}

func TestNew_Backends(t *testing.T) {
	cfg := config.New().Runner

	r, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New(docker) failed: %v", err)
	}
	if _, ok := r.(*ContainerRunner); !ok {
		t.Fatalf("Expected *ContainerRunner, got %T", r)
	}

	cfg.Backend = config.BackendLocal
	r, err = New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New(local) failed: %v", err)
	}
	if _, ok := r.(*LocalRunner); !ok {
		t.Fatalf("Expected *LocalRunner, got %T", r)
	}

	cfg.Backend = "podman"
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("Expected error for unknown backend")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses a shell script renovate stub")
	}
	p := filepath.Join(t.TempDir(), "renovate")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("WriteFile renovate stub failed: %v", err)
	}
	return p
}

func TestLocalRunner_Run(t *testing.T) {
	t.Run("passes repo and env", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out")
		script := writeScript(t, `echo "$1 $RENOVATE_TOKEN" > "`+out+"\"\necho progress\n")

		r := NewLocalRunner(config.Runner{Binary: script}, zerolog.Nop())
		res, err := r.Run(context.Background(), Job{
			Repo: "acme/api",
			Env:  map[string]string{EnvRenovateToken: "tok"},
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.ExitCode != 0 {
			t.Fatalf("Expected exit 0, got %d", res.ExitCode)
		}
		b, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if got := strings.TrimSpace(string(b)); got != "acme/api tok" {
			t.Fatalf("Expected %q, got %q", "acme/api tok", got)
		}
	})

	t.Run("logs job output line by line", func(t *testing.T) {
		script := writeScript(t, "echo first\necho second >&2\n")

		var buf bytes.Buffer
		r := NewLocalRunner(config.Runner{Binary: script}, zerolog.New(&buf).Level(zerolog.DebugLevel))
		if _, err := r.Run(context.Background(), Job{Repo: "acme/api"}); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		out := buf.String()
		for _, want := range []string{`"output":"first"`, `"output":"second"`, `"repo":"acme/api"`} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected log to contain %s, got %s", want, out)
			}
		}
	})

	t.Run("non-zero exit is a result not an error", func(t *testing.T) {
		script := writeScript(t, "exit 7\n")

		r := NewLocalRunner(config.Runner{Binary: script}, zerolog.Nop())
		res, err := r.Run(context.Background(), Job{Repo: "acme/api"})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.ExitCode != 7 {
			t.Fatalf("Expected exit 7, got %d", res.ExitCode)
		}
	})

	t.Run("missing binary is an error", func(t *testing.T) {
		r := NewLocalRunner(config.Runner{Binary: filepath.Join(t.TempDir(), "nope")}, zerolog.Nop())
		if _, err := r.Run(context.Background(), Job{Repo: "acme/api"}); err == nil {
			t.Fatalf("Expected error")
		}
	})

	t.Run("context cancellation interrupts the job", func(t *testing.T) {
		script := writeScript(t, "exec sleep 30\n")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		r := NewLocalRunner(config.Runner{Binary: script}, zerolog.Nop())
		_, err := r.Run(ctx, Job{Repo: "acme/api"})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Expected deadline exceeded, got %v", err)
		}
	})
}

func TestJobOutput_Accept(t *testing.T) {
	var buf bytes.Buffer
	out := newJobOutput(zerolog.New(&buf).Level(zerolog.DebugLevel))

	out.Accept(testcontainers.Log{LogType: testcontainers.StdoutLog, Content: []byte("resolving ")})
	out.Accept(testcontainers.Log{LogType: testcontainers.StderrLog, Content: []byte("WARN: slow\n")})

	if strings.Contains(buf.String(), "resolving") {
		t.Fatalf("Expected partial stdout line to stay buffered, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"stream":"stderr","output":"WARN: slow"`) {
		t.Fatalf("Expected stderr line to be logged as it arrives, got %s", buf.String())
	}

	out.Accept(testcontainers.Log{LogType: testcontainers.StdoutLog, Content: []byte("deps\ndone")})
	if !strings.Contains(buf.String(), `"stream":"stdout","output":"resolving deps"`) {
		t.Fatalf("Expected joined stdout line, got %s", buf.String())
	}

	out.Flush()
	if !strings.Contains(buf.String(), `"output":"done"`) {
		t.Fatalf("Expected trailing line after Flush, got %s", buf.String())
	}
}
