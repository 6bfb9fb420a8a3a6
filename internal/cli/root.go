package cli

import (
	"fmt"
	"os"
	"renovateshard/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "renovateshard",
	Short: "Run Renovate across a fleet of repositories with a bounded worker pool",
	Long: `renovateshard discovers every repository visible to a Gitea (or GitHub)
credential and runs one Renovate job per repository, a few at a time.

Repositories are dispatched in random order so repeated sweeps do not always
favor the same repositories. Job failures are logged and never stop the sweep.

Examples:
	# Show available commands and global flags
	renovateshard --help

	# Sweep every repository on a Gitea instance
	renovateshard sweep --endpoint https://git.example.com

	# Print build info
	renovateshard version`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every hosting API call)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
