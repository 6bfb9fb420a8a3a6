package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"renovateshard/internal/config"
	"renovateshard/internal/engine"
	"renovateshard/internal/flags"
	"renovateshard/internal/hosting"
	"renovateshard/internal/logging"
	"renovateshard/internal/metrics"
	"renovateshard/internal/runner"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	cfg        = config.New()
	configPath string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run Renovate once against every discovered repository",
	Long: `Discover repositories on the hosting service and run one Renovate job per
repository with a fixed number of concurrent workers.

Discovery:
	Repositories are listed page by page (--page-size per request) until a
	short page comes back. --org limits discovery to one organization;
	--include/--exclude filter the result by name.

Dispatch:
	The repository list is shuffled and handed to --workers workers through a
	bounded queue. Each worker runs one job at a time and pauses for
	--cooldown after every job. A failing job is logged and the sweep goes on.

Environment:
	GITEA_ACCESS_TOKEN    credential used to list repositories (gitea)
	GITHUB_TOKEN          credential used to list repositories (github; falls
	                      back to 'gh auth token')
	GITEA_RENOVATE_TOKEN  passed to Renovate as RENOVATE_TOKEN
	RENOVATE_SECRETS      passed to Renovate unchanged
	GITHUB_COM_TOKEN      passed to Renovate unchanged

	Variables may also be placed in a dotenv file (--env-file, default .env);
	values already set in the environment win.

Exit codes:
	0 = sweep completed (individual job failures are logged, not fatal)
	2 = interrupted (SIGINT/SIGTERM); some repositories were not processed
	3 = fatal error (sweep did not run)

Examples:
  # Sweep a Gitea instance with the default Renovate image
  export GITEA_ACCESS_TOKEN=... GITEA_RENOVATE_TOKEN=... RENOVATE_SECRETS='{}' GITHUB_COM_TOKEN=...
  renovateshard sweep --endpoint https://git.example.com

  # Print the dispatch order without running Renovate
  renovateshard sweep --endpoint https://git.example.com --dry-run

  # Use a locally installed renovate binary and a YAML config file
  renovateshard sweep --config renovateshard.yaml --runner local
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}
		os.Exit(runSweep(cmd))
	},
}

func runSweep(cmd *cobra.Command) int {
	if configPath != "" {
		f, err := config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return engine.ExitFatal
		}
		cfg.ApplyFile(f, cmd.Flags().Changed)
	}

	if _, err := config.LoadEnvFile(cfg.Runtime.EnvFile, cmd.Flags().Changed(flags.FlagEnvFile)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}

	runID := uuid.NewString()
	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
		Fields: map[string]string{"run_id": runID},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, source, err := hosting.ResolveAuthToken(ctx, cfg.Hosting.Provider, "")
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve hosting credential")
		return engine.ExitFatal
	}
	if token == "" {
		err := &config.ConfigurationError{Missing: []string{config.HostingTokenEnv(cfg.Hosting.Provider)}}
		logger.Error().Err(err).Msg("hosting credential is required")
		return engine.ExitFatal
	}
	logger.Debug().Str("source", string(source)).Msg("resolved hosting credential")

	// Dry runs never dispatch a job, so only the listing credential is needed.
	secrets := config.Secrets{HostingToken: token}
	if !cfg.Hosting.DryRun {
		secrets, err = config.ResolveSecrets(cfg.Hosting.Provider, token, nil)
		if err != nil {
			logger.Error().Err(err).Msg("invalid configuration")
			return engine.ExitFatal
		}
		if err := checkRenovateConfig(cfg.Runner.ConfigFile); err != nil {
			logger.Error().Err(err).Msg("invalid configuration")
			return engine.ExitFatal
		}
	}

	lister, err := hosting.NewLister(hosting.ListerConfig{
		Provider: cfg.Hosting.Provider,
		Endpoint: cfg.Hosting.Endpoint,
		Org:      cfg.Hosting.Org,
		Token:    token,
		Verbose:  cfg.Runtime.Verbose,
		Logger:   logging.Component(logger, "hosting"),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create hosting client")
		return engine.ExitFatal
	}

	run, err := runner.New(cfg.Runner, logging.Component(logger, "runner"))
	if err != nil {
		logger.Error().Err(err).Msg("failed to create job runner")
		return engine.ExitFatal
	}
	tmpl, err := runner.NewTemplate(cfg.Runner)
	if err != nil {
		logger.Error().Err(err).Msg("failed to prepare job template")
		return engine.ExitFatal
	}

	eng := &engine.Engine{
		Lister:   lister,
		Runner:   run,
		Template: tmpl,
		Secrets:  secrets,
		Metrics:  metrics.NewRecorder(),
		Logger:   logging.Component(logger, "engine"),
		RunID:    runID,
		Out:      cmd.OutOrStdout(),
	}
	return eng.Run(ctx, cfg)
}

// checkRenovateConfig fails early when the Renovate config file every job
// mounts is missing.
func checkRenovateConfig(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &config.ConfigurationError{Reason: fmt.Sprintf("renovate config file %s does not exist", path)}
		}
		return &config.ConfigurationError{Reason: fmt.Sprintf("renovate config file %s: %v", path, err)}
	}
	if info.IsDir() {
		return &config.ConfigurationError{Reason: fmt.Sprintf("renovate config file %s is a directory", path)}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	// MAINTAINER NOTE: If you add/change/remove flags here, keep the YAML mapping
	// in internal/config/file.go (File, ApplyFile) in sync.

	// Global
	sweepCmd.Flags().StringVar(&configPath, flags.FlagConfig, "", "YAML config file; explicit flags override its values")
	sweepCmd.Flags().StringVar(&cfg.Runtime.EnvFile, flags.FlagEnvFile, cfg.Runtime.EnvFile, "Dotenv file loaded before reading secrets (missing default file is ignored)")
	sweepCmd.Flags().StringVar(&cfg.Logging.Level, flags.FlagLogLevel, cfg.Logging.Level, "Log level: debug|info|warn|error")
	sweepCmd.Flags().StringVar(&cfg.Logging.Format, flags.FlagLogFormat, cfg.Logging.Format, "Log format: console|json")

	// Hosting
	sweepCmd.Flags().StringVar(&cfg.Hosting.Provider, flags.FlagProvider, cfg.Hosting.Provider, "Hosting service API: gitea|github")
	sweepCmd.Flags().StringVar(&cfg.Hosting.Endpoint, flags.FlagEndpoint, "", "Hosting service base URL (required for gitea; GitHub Enterprise host for github)")
	sweepCmd.Flags().StringVar(&cfg.Hosting.Org, flags.FlagOrg, "", "Only sweep repositories of this organization")
	sweepCmd.Flags().IntVar(&cfg.Hosting.PageSize, flags.FlagPageSize, cfg.Hosting.PageSize, "Repositories requested per listing page")
	sweepCmd.Flags().StringSliceVar(&cfg.Hosting.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches OWNER/REPO, else matches repo name")
	sweepCmd.Flags().StringSliceVar(&cfg.Hosting.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	sweepCmd.Flags().BoolVar(&cfg.Hosting.DryRun, flags.FlagDryRun, false, "Print the shuffled dispatch order without running Renovate (still requires the listing credential)")

	// Runner
	sweepCmd.Flags().StringVar(&cfg.Runner.Backend, flags.FlagRunner, cfg.Runner.Backend, "Job runner: docker|local")
	sweepCmd.Flags().StringVar(&cfg.Runner.Image, flags.FlagImage, cfg.Runner.Image, "Renovate container image (docker runner)")
	sweepCmd.Flags().StringSliceVar(&cfg.Runner.Entrypoint, flags.FlagEntrypoint, nil, "Override the image entrypoint (docker runner; comma-separated)")
	sweepCmd.Flags().StringVar(&cfg.Runner.ConfigFile, flags.FlagRenovateConfig, cfg.Runner.ConfigFile, "Host path of the Renovate config file")
	sweepCmd.Flags().StringVar(&cfg.Runner.ConfigMount, flags.FlagConfigMount, cfg.Runner.ConfigMount, "Container path the Renovate config file is mounted at (docker runner)")
	sweepCmd.Flags().StringVar(&cfg.Runner.Binary, flags.FlagRenovateBinary, cfg.Runner.Binary, "Renovate executable (local runner)")
	sweepCmd.Flags().StringVar(&cfg.Runner.Platform, flags.FlagRenovatePlatform, "", "Passed to Renovate as RENOVATE_PLATFORM")
	sweepCmd.Flags().StringVar(&cfg.Runner.Endpoint, flags.FlagRenovateEndpoint, "", "Passed to Renovate as RENOVATE_ENDPOINT")
	sweepCmd.Flags().StringVar(&cfg.Runner.LogLevel, flags.FlagRenovateLogLevel, "", "Passed to Renovate as LOG_LEVEL")

	// Runtime
	sweepCmd.Flags().IntVar(&cfg.Runtime.Workers, flags.FlagWorkers, cfg.Runtime.Workers, "Concurrent Renovate jobs")
	sweepCmd.Flags().DurationVar(&cfg.Runtime.Cooldown, flags.FlagCooldown, cfg.Runtime.Cooldown, "Pause after each job, per worker")
	sweepCmd.Flags().StringVar(&cfg.Runtime.Pushgateway, flags.FlagPushgateway, "", "Prometheus Pushgateway URL to push run metrics to when the sweep ends")
}
