package hosting

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"renovateshard/internal/config"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceEnv      AuthTokenSource = "env"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

// lookPath and runGH are swapped out in tests.
var (
	lookPath = exec.LookPath
	runGH    = func(ctx context.Context, env []string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, "gh", "auth", "token", "-h", "github.com")
		cmd.Env = env
		return cmd.CombinedOutput()
	}
)

// ResolveAuthToken resolves the listing credential for provider.
//
// Precedence:
//  1. provided (if non-empty)
//  2. the provider's env var (GITEA_ACCESS_TOKEN or GITHUB_TOKEN)
//  3. github only: `gh auth token -h github.com`
//
// An empty token with a nil error means nothing was found; the caller reports
// it as missing configuration. It never prints the token.
func ResolveAuthToken(ctx context.Context, provider, provided string) (token string, source AuthTokenSource, err error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}

	if env := strings.TrimSpace(os.Getenv(config.HostingTokenEnv(provider))); env != "" {
		return env, AuthTokenSourceEnv, nil
	}

	if provider != config.ProviderGitHub {
		return "", "", nil
	}

	tok, ok, err := tokenFromGitHubCLI(ctx)
	if err != nil {
		return "", "", err
	}
	if ok {
		return tok, AuthTokenSourceGitHubCL, nil
	}
	return "", "", nil
}

func tokenFromGitHubCLI(ctx context.Context) (token string, ok bool, err error) {
	if _, lookErr := lookPath("gh"); lookErr != nil {
		return "", false, nil
	}

	// Bounded so a broken gh credential helper cannot stall startup.
	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	env := os.Environ()
	filtered := env[:0]
	for _, entry := range env {
		if strings.HasPrefix(entry, "GH_PAGER=") {
			continue
		}
		filtered = append(filtered, entry)
	}
	out, runErr := runGH(cmdCtx, append(filtered, "GH_PAGER=cat"))
	if runErr != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// gh present but not logged in: treat as "no token" and keep its output private.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, true, nil
}
