// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Upstream       UpstreamConfig
	Server         ServerConfig
	RateLimit      RateLimitConfig
	Cache          CacheConfig
	Tokens         TokenConfig
	Store          StoreConfig
	Triage         TriageConfig
	PatchNotesFile string
}

// UpstreamConfig holds settings for the upstream issue tracker.
type UpstreamConfig struct {
	// Token authenticates against the upstream API. Never logged in full.
	Token string
	// Repo is the tracked repository in owner/repo form.
	Repo string
	// Domain selects a GitHub Enterprise host; empty means github.com.
	Domain string
}

// ServerConfig holds gateway HTTP server settings.
type ServerConfig struct {
	Port int
	// AllowedOrigins is the CORS allow-list; the first entry is the
	// fallback origin for requests from unlisted origins.
	AllowedOrigins []string
}

// RateLimitConfig holds the fixed-window write gate settings.
type RateLimitConfig struct {
	Ceiling int
	Window  time.Duration
}

// CacheConfig holds per-operation response cache TTLs.
type CacheConfig struct {
	IssuesTTL time.Duration
	StatsTTL  time.Duration
	StaticTTL time.Duration
}

// TokenConfig holds attribution token settings.
type TokenConfig struct {
	// Prefix marks a syntactically valid application-generated token.
	Prefix string
	// TTL is how long an unseen token record survives between sightings.
	TTL time.Duration
}

// StoreConfig selects the backing key-value store.
type StoreConfig struct {
	// Path is the SQLite database path; empty selects the in-memory store.
	Path string
}

// TriageConfig holds optional LLM triage settings.
type TriageConfig struct {
	APIKey string
	Model  string
}

// SetDefaults registers every default with the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("upstream.domain", "")
	v.SetDefault("rate_limit.ceiling", 10)
	v.SetDefault("rate_limit.window", "1h")
	v.SetDefault("cache.issues_ttl", "5m")
	v.SetDefault("cache.stats_ttl", "30m")
	v.SetDefault("cache.static_ttl", "1h")
	v.SetDefault("tokens.prefix", "bugboard-")
	v.SetDefault("tokens.ttl", "720h")
	v.SetDefault("store.path", "")
	v.SetDefault("triage.api_key", "")
	v.SetDefault("triage.model", "claude-haiku-4-5-20251001")
	v.SetDefault("patch_notes_file", "")
}

// FromViper builds a Config from the given viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Upstream: UpstreamConfig{
			Token:  v.GetString("upstream.token"),
			Repo:   v.GetString("upstream.repo"),
			Domain: v.GetString("upstream.domain"),
		},
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		RateLimit: RateLimitConfig{
			Ceiling: v.GetInt("rate_limit.ceiling"),
			Window:  v.GetDuration("rate_limit.window"),
		},
		Cache: CacheConfig{
			IssuesTTL: v.GetDuration("cache.issues_ttl"),
			StatsTTL:  v.GetDuration("cache.stats_ttl"),
			StaticTTL: v.GetDuration("cache.static_ttl"),
		},
		Tokens: TokenConfig{
			Prefix: v.GetString("tokens.prefix"),
			TTL:    v.GetDuration("tokens.ttl"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		Triage: TriageConfig{
			APIKey: v.GetString("triage.api_key"),
			Model:  v.GetString("triage.model"),
		},
		PatchNotesFile: v.GetString("patch_notes_file"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate ensures required values are present and sane.
func validate(cfg *Config) error {
	if cfg.Upstream.Token == "" {
		return fmt.Errorf("missing required configuration: upstream.token (BUGBOARD_UPSTREAM_TOKEN)")
	}
	if cfg.Upstream.Repo == "" {
		return fmt.Errorf("missing required configuration: upstream.repo (BUGBOARD_UPSTREAM_REPO)")
	}
	if cfg.RateLimit.Ceiling <= 0 {
		return fmt.Errorf("rate_limit.ceiling must be positive, got %d", cfg.RateLimit.Ceiling)
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("server.allowed_origins must list at least one origin")
	}
	return nil
}
