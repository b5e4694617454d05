package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/partyline/internal/config"
	"github.com/rs/zerolog"
)

// partyctl config.toml key mapping to runtime settings.
type fileConfig struct {
	PartyConfigPath string `toml:"party_config_path"`
	Addr            string `toml:"addr"`
	Host            string `toml:"host"`
	LogLevel        string `toml:"log_level"`
	Metrics         bool   `toml:"metrics"`
	MetricsPath     string `toml:"metrics_path"`
	InviteTimeout   string `toml:"invite_timeout"`
}

type serviceConfig struct {
	Party         config.PartyConfig
	LogLevel      zerolog.Level
	Metrics       bool
	MetricsPath   string
	InviteTimeout time.Duration
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Party:         config.DefaultPartyConfig(),
		LogLevel:      zerolog.InfoLevel,
		Metrics:       true,
		MetricsPath:   "/metrics",
		InviteTimeout: 5 * time.Second,
	}
}

// loadServiceConfig overlays the keys set in path onto the defaults. The
// party layout comes from party_config_path, resolved next to path.
func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load partyctl config: %w", err)
	}

	if partyPath := strings.TrimSpace(raw.PartyConfigPath); partyPath != "" {
		if !filepath.IsAbs(partyPath) {
			partyPath = filepath.Join(filepath.Dir(path), partyPath)
		}
		if _, err := os.Stat(partyPath); err != nil {
			return serviceConfig{}, fmt.Errorf("load partyctl config: party config path %q: %w", raw.PartyConfigPath, err)
		}
		party, err := config.LoadPartyConfig(partyPath)
		if err != nil {
			return serviceConfig{}, fmt.Errorf("load partyctl config: %w", err)
		}
		cfg.Party = party
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Party.Addr = addr
		}
	}
	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Party.Host = host
		}
	}
	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw.LogLevel)))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("metrics") {
		cfg.Metrics = raw.Metrics
	}
	if meta.IsDefined("metrics_path") {
		cfg.MetricsPath = strings.TrimSpace(raw.MetricsPath)
	}
	if meta.IsDefined("invite_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.InviteTimeout))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse invite_timeout: %w", err)
		}
		cfg.InviteTimeout = d
	}

	if cfg.Metrics && !strings.HasPrefix(cfg.MetricsPath, "/") {
		return serviceConfig{}, fmt.Errorf("load partyctl config: metrics_path must start with / when metrics=true")
	}
	if err := config.ValidatePartyConfig(cfg.Party); err != nil {
		return serviceConfig{}, fmt.Errorf("load partyctl config: %w", err)
	}
	return cfg, nil
}
