// Package config loads ossuary's runtime configuration: environment
// variables layered over an optional ossuary.yaml/ossuary.json file,
// layered over hard-coded defaults (spec §6, SPEC_FULL.md §10.1).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ossuary/ossuary/pkg/scoring"
)

// RateLimits holds the per-host token-bucket sizes used by the
// collectors (C2-C4). Values are requests per second; burst equals the
// rate rounded up.
type RateLimits struct {
	GitHubRPS   float64 `mapstructure:"github_rps" yaml:"github_rps"`
	RegistryRPS float64 `mapstructure:"registry_rps" yaml:"registry_rps"`
	CIIBadgeRPS float64 `mapstructure:"cii_badge_rps" yaml:"cii_badge_rps"`
}

// Config is the closed set of runtime settings ossuary reads once at
// startup. Unlike a loose map, every caller knows exactly what fields
// exist and their types.
type Config struct {
	GitHubToken string `mapstructure:"github_token" yaml:"github_token"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	ReposPath   string `mapstructure:"repos_path" yaml:"repos_path"`
	CacheDays   int    `mapstructure:"cache_days" yaml:"cache_days"`

	RateLimits RateLimits     `mapstructure:"rate_limits" yaml:"rate_limits"`
	Scoring    scoring.Config `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns ossuary's hard-coded defaults, the bottom layer
// of the config merge.
func DefaultConfig() Config {
	return Config{
		DatabaseURL: "sqlite://./ossuary.db",
		ReposPath:   "./repos",
		CacheDays:   7,
		RateLimits: RateLimits{
			GitHubRPS:   5,
			RegistryRPS: 10,
			CIIBadgeRPS: 1,
		},
		Scoring: scoring.DefaultConfig(),
	}
}

// Load builds a Config by layering environment variables and an
// optional config file over DefaultConfig(). Environment variables
// always win; the file (ossuary.yaml/ossuary.json in the working
// directory, or in $HOME/.ossuary) wins over defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("OSSUARY")
	v.AutomaticEnv()

	v.SetDefault("database_url", cfg.DatabaseURL)
	v.SetDefault("repos_path", cfg.ReposPath)
	v.SetDefault("cache_days", cfg.CacheDays)
	v.SetDefault("rate_limits.github_rps", cfg.RateLimits.GitHubRPS)
	v.SetDefault("rate_limits.registry_rps", cfg.RateLimits.RegistryRPS)
	v.SetDefault("rate_limits.cii_badge_rps", cfg.RateLimits.CIIBadgeRPS)

	v.SetConfigName("ossuary")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".ossuary"))
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, ".ossuary"))
		v.SetConfigName("ossuary")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	// GITHUB_TOKEN is the conventional unprefixed name used by gh/git
	// tooling; honor it alongside OSSUARY_GITHUB_TOKEN.
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		v.SetDefault("github_token", tok)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = v.GetString("github_token")
	}
	cfg.Scoring = scoring.DefaultConfig()

	return cfg, nil
}
