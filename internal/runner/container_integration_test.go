//go:build integration

package runner

import (
	"context"
	"os"
	"path/filepath"
	"renovateshard/internal/config"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestContainerRunner_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfgFile := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(cfgFile, []byte(`{"onboarding":false}`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := config.New().Runner
	cfg.Image = "alpine:3.20"
	cfg.ConfigFile = cfgFile

	t.Run("mounts config and reports exit code", func(t *testing.T) {
		cfg := cfg
		cfg.Entrypoint = []string{"sh", "-c", `test "$0" = acme/api && test -f "$RENOVATE_CONFIG_FILE" && exit 4`}

		tmpl, err := NewTemplate(cfg)
		if err != nil {
			t.Fatalf("NewTemplate failed: %v", err)
		}
		job, err := tmpl.For("acme/api", config.Secrets{
			HostingToken:    "h",
			RenovateToken:   "r",
			RenovateSecrets: "{}",
			GitHubComToken:  "g",
		})
		if err != nil {
			t.Fatalf("For failed: %v", err)
		}

		res, err := NewContainerRunner(cfg, zerolog.Nop()).Run(ctx, job)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.ExitCode != 4 {
			t.Fatalf("Expected exit 4, got %d", res.ExitCode)
		}
	})
}
