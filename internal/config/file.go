package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"renovateshard/internal/flags"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML representation of Config. Every field is optional;
// unset fields leave the corresponding Config value untouched.
//
//	hosting:
//	  provider: gitea
//	  endpoint: git.example.com
//	  page_size: 50
//	runner:
//	  backend: docker
//	  image: renovate/renovate:35.19.2
//	runtime:
//	  workers: 3
//	  cooldown: 2s
type File struct {
	Hosting struct {
		Provider *string  `yaml:"provider"`
		Endpoint *string  `yaml:"endpoint"`
		Org      *string  `yaml:"org"`
		PageSize *int     `yaml:"page_size"`
		Include  []string `yaml:"include"`
		Exclude  []string `yaml:"exclude"`
	} `yaml:"hosting"`

	Runner struct {
		Backend     *string  `yaml:"backend"`
		Image       *string  `yaml:"image"`
		Entrypoint  []string `yaml:"entrypoint"`
		ConfigFile  *string  `yaml:"config_file"`
		ConfigMount *string  `yaml:"config_mount"`
		Binary      *string  `yaml:"binary"`
		Platform    *string  `yaml:"platform"`
		Endpoint    *string  `yaml:"endpoint"`
		LogLevel    *string  `yaml:"log_level"`
	} `yaml:"runner"`

	Runtime struct {
		Workers     *int           `yaml:"workers"`
		Cooldown    *time.Duration `yaml:"cooldown"`
		Pushgateway *string        `yaml:"pushgateway"`
	} `yaml:"runtime"`

	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadFile reads and strictly decodes a YAML config file. Unknown keys are an error.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("config file: %v", err)}
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("config file %s: %v", path, err)}
	}
	return &f, nil
}

// ApplyFile copies values from f into c. A value is skipped when changed reports
// that the matching command-line flag was set explicitly, so flags always win.
func (c *Config) ApplyFile(f *File, changed func(flag string) bool) {
	if f == nil {
		return
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	setString := func(flag string, dst *string, src *string) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setInt := func(flag string, dst *int, src *int) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setSlice := func(flag string, dst *[]string, src []string) {
		if src != nil && !changed(flag) {
			*dst = append([]string(nil), src...)
		}
	}

	setString(flags.FlagProvider, &c.Hosting.Provider, f.Hosting.Provider)
	setString(flags.FlagEndpoint, &c.Hosting.Endpoint, f.Hosting.Endpoint)
	setString(flags.FlagOrg, &c.Hosting.Org, f.Hosting.Org)
	setInt(flags.FlagPageSize, &c.Hosting.PageSize, f.Hosting.PageSize)
	setSlice(flags.FlagInclude, &c.Hosting.Include, f.Hosting.Include)
	setSlice(flags.FlagExclude, &c.Hosting.Exclude, f.Hosting.Exclude)

	setString(flags.FlagRunner, &c.Runner.Backend, f.Runner.Backend)
	setString(flags.FlagImage, &c.Runner.Image, f.Runner.Image)
	setSlice(flags.FlagEntrypoint, &c.Runner.Entrypoint, f.Runner.Entrypoint)
	setString(flags.FlagRenovateConfig, &c.Runner.ConfigFile, f.Runner.ConfigFile)
	setString(flags.FlagConfigMount, &c.Runner.ConfigMount, f.Runner.ConfigMount)
	setString(flags.FlagRenovateBinary, &c.Runner.Binary, f.Runner.Binary)
	setString(flags.FlagRenovatePlatform, &c.Runner.Platform, f.Runner.Platform)
	setString(flags.FlagRenovateEndpoint, &c.Runner.Endpoint, f.Runner.Endpoint)
	setString(flags.FlagRenovateLogLevel, &c.Runner.LogLevel, f.Runner.LogLevel)

	setInt(flags.FlagWorkers, &c.Runtime.Workers, f.Runtime.Workers)
	if f.Runtime.Cooldown != nil && !changed(flags.FlagCooldown) {
		c.Runtime.Cooldown = *f.Runtime.Cooldown
	}
	setString(flags.FlagPushgateway, &c.Runtime.Pushgateway, f.Runtime.Pushgateway)

	setString(flags.FlagLogLevel, &c.Logging.Level, f.Logging.Level)
	setString(flags.FlagLogFormat, &c.Logging.Format, f.Logging.Format)
}
