package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid party config")

// PartyConfig describes one dispatcher and the apps mounted behind it.
type PartyConfig struct {
	Name        string      `toml:"name"`
	Addr        string      `toml:"addr"`
	Host        string      `toml:"host"`
	InvitePath  string      `toml:"invite_path"`
	CorsOrigins []string    `toml:"cors_origins"`
	Apps        []AppConfig `toml:"apps"`
}

// AppConfig is one mounted app. An empty prefix mounts the root app.
type AppConfig struct {
	ID     string `toml:"id"`
	Prefix string `toml:"prefix"`
	Party  bool   `toml:"party"`
}

func DefaultPartyConfig() PartyConfig {
	return PartyConfig{
		Name:        "partyline",
		Addr:        ":8000",
		Host:        "localhost",
		InvitePath:  "/__invite__/",
		CorsOrigins: []string{"http://localhost:3000"},
		Apps: []AppConfig{
			{ID: "root", Prefix: "", Party: true},
			{ID: "one", Prefix: "/one", Party: true},
			{ID: "two", Prefix: "/two", Party: true},
			{ID: "three", Prefix: "/three", Party: false},
		},
	}
}

func LoadPartyConfig(path string) (PartyConfig, error) {
	var cfg PartyConfig
	if err := loadToml(path, &cfg); err != nil {
		return PartyConfig{}, err
	}
	def := DefaultPartyConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.InvitePath == "" {
		cfg.InvitePath = def.InvitePath
	}
	if err := ValidatePartyConfig(cfg); err != nil {
		return PartyConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidatePartyConfig(cfg PartyConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: missing addr", ErrInvalidConfig)
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.InvitePath), "/") {
		return fmt.Errorf("%w: invite_path must start with /", ErrInvalidConfig)
	}
	if len(cfg.Apps) == 0 {
		return fmt.Errorf("%w: no apps", ErrInvalidConfig)
	}
	ids := make(map[string]bool, len(cfg.Apps))
	prefixes := make(map[string]bool, len(cfg.Apps))
	for i, appCfg := range cfg.Apps {
		if err := ValidateAppEntry(appCfg); err != nil {
			return fmt.Errorf("%w: apps[%d]: %v", ErrInvalidConfig, i, err)
		}
		id := strings.TrimSpace(appCfg.ID)
		prefix := NormalizePrefix(appCfg.Prefix)
		if ids[id] {
			return fmt.Errorf("%w: apps[%d]: duplicate id %q", ErrInvalidConfig, i, id)
		}
		if prefixes[prefix] {
			if prefix == "" {
				return fmt.Errorf("%w: apps[%d]: more than one root app", ErrInvalidConfig, i)
			}
			return fmt.Errorf("%w: apps[%d]: duplicate prefix %q", ErrInvalidConfig, i, prefix)
		}
		ids[id] = true
		prefixes[prefix] = true
	}
	return nil
}

func ValidateAppEntry(cfg AppConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("id is required")
	}
	prefix := NormalizePrefix(cfg.Prefix)
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix %q must start with /", cfg.Prefix)
	}
	return nil
}

// NormalizePrefix trims whitespace and trailing slashes; "/" becomes the
// root prefix "".
func NormalizePrefix(prefix string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/")
}
