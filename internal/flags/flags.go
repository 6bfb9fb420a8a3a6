package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// config file loader. The YAML loader only applies a file value when the
// matching flag was not set on the command line, so both sides must agree on
// these names.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().IntVar(&cfg.Runtime.Workers, flags.FlagWorkers, 3, "...")
//	if cmd.Flags().Changed(flags.FlagWorkers) { ... }
const (
	// Global
	FlagVerbose   = "verbose"
	FlagConfig    = "config"
	FlagEnvFile   = "env-file"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"

	// Hosting
	FlagProvider = "provider"
	FlagEndpoint = "endpoint"
	FlagOrg      = "org"
	FlagPageSize = "page-size"
	FlagInclude  = "include"
	FlagExclude  = "exclude"
	FlagDryRun   = "dry-run"

	// Runner
	FlagRunner           = "runner"
	FlagImage            = "image"
	FlagEntrypoint       = "entrypoint"
	FlagRenovateConfig   = "renovate-config"
	FlagConfigMount      = "renovate-config-mount"
	FlagRenovateBinary   = "renovate-binary"
	FlagRenovatePlatform = "renovate-platform"
	FlagRenovateEndpoint = "renovate-endpoint"
	FlagRenovateLogLevel = "renovate-log-level"

	// Runtime
	FlagWorkers     = "workers"
	FlagCooldown    = "cooldown"
	FlagPushgateway = "pushgateway"
)
