package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment variables read at startup.
const (
	EnvGiteaAccessToken = "GITEA_ACCESS_TOKEN"
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvRenovateToken    = "GITEA_RENOVATE_TOKEN"
	EnvRenovateSecrets  = "RENOVATE_SECRETS"
	EnvGitHubComToken   = "GITHUB_COM_TOKEN"
)

// Secrets holds every credential a sweep needs. It is resolved once at startup
// and shared read-only by all workers.
type Secrets struct {
	// HostingToken authenticates repository listing.
	HostingToken string `validate:"required"`

	// RenovateToken is the token Renovate uses against the hosting service.
	RenovateToken string `validate:"required"`

	// RenovateSecrets is the opaque RENOVATE_SECRETS blob.
	RenovateSecrets string `validate:"required"`

	// GitHubComToken lets Renovate fetch changelogs/releases from github.com.
	GitHubComToken string `validate:"required"`
}

// jobSecretFields are the Secrets fields every dispatched job needs.
var jobSecretFields = []string{"RenovateToken", "RenovateSecrets", "GitHubComToken"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ConfigurationError reports missing or unusable configuration. Missing lists
// environment variable names (never their values).
type ConfigurationError struct {
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		msg := fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
		if e.Reason != "" {
			msg += " (" + e.Reason + ")"
		}
		return msg
	}
	if e.Reason != "" {
		return "configuration error: " + e.Reason
	}
	return "configuration error"
}

// HostingTokenEnv returns the environment variable that carries the listing
// credential for provider.
func HostingTokenEnv(provider string) string {
	if provider == ProviderGitHub {
		return EnvGitHubToken
	}
	return EnvGiteaAccessToken
}

// ResolveSecrets reads the job secrets from lookup (os.Getenv when nil) and
// combines them with the already resolved hosting token. Every missing value is
// reported in a single *ConfigurationError.
func ResolveSecrets(provider, hostingToken string, lookup func(string) string) (Secrets, error) {
	if lookup == nil {
		lookup = os.Getenv
	}
	s := Secrets{
		HostingToken:    strings.TrimSpace(hostingToken),
		RenovateToken:   strings.TrimSpace(lookup(EnvRenovateToken)),
		RenovateSecrets: strings.TrimSpace(lookup(EnvRenovateSecrets)),
		GitHubComToken:  strings.TrimSpace(lookup(EnvGitHubComToken)),
	}
	if missing := missingSecrets(validate.Struct(s), provider); len(missing) > 0 {
		return Secrets{}, &ConfigurationError{Missing: missing}
	}
	return s, nil
}

// CheckJob verifies the secrets a single job needs are present.
func (s Secrets) CheckJob() error {
	if missing := missingSecrets(validate.StructPartial(s, jobSecretFields...), ""); len(missing) > 0 {
		return &ConfigurationError{Missing: missing, Reason: "job not dispatched"}
	}
	return nil
}

func missingSecrets(err error, provider string) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, secretEnvName(fe.StructField(), provider))
	}
	sort.Strings(names)
	return names
}

func secretEnvName(field, provider string) string {
	switch field {
	case "HostingToken":
		return HostingTokenEnv(provider)
	case "RenovateToken":
		return EnvRenovateToken
	case "RenovateSecrets":
		return EnvRenovateSecrets
	case "GitHubComToken":
		return EnvGitHubComToken
	default:
		return field
	}
}
