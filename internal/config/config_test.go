package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/partyline/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPartyTemplateLoads(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "party.toml")
	if err := WriteTemplate(path, "party", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadPartyConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultPartyConfig()
	if cfg.Name != def.Name || cfg.Addr != def.Addr || cfg.InvitePath != def.InvitePath {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Apps) != len(def.Apps) {
		t.Fatalf("unexpected apps: %+v", cfg.Apps)
	}
	for i := range def.Apps {
		if cfg.Apps[i] != def.Apps[i] {
			t.Fatalf("apps[%d] = %+v, want %+v", i, cfg.Apps[i], def.Apps[i])
		}
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "party.toml", "name = \"x\"\n")
	if err := WriteTemplate(path, "party", false); err == nil {
		t.Fatalf("expected existing file to be kept")
	}
	if err := WriteTemplate(path, "party", true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := Template("nope"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadPartyConfigFillsDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "party.toml", `
[[apps]]
id = "root"

[[apps]]
id = "docs"
prefix = "/docs/"
party = true
`)
	cfg, err := LoadPartyConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8000" || cfg.Host != "localhost" || cfg.InvitePath != "/__invite__/" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !cfg.Apps[1].Party || NormalizePrefix(cfg.Apps[1].Prefix) != "/docs" {
		t.Fatalf("unexpected docs app: %+v", cfg.Apps[1])
	}
}

func TestValidatePartyConfigRejects(t *testing.T) {
	testlog.Start(t)
	cases := map[string][]AppConfig{
		"none":         nil,
		"missing id":   {{ID: " ", Prefix: "/a"}},
		"bad prefix":   {{ID: "a", Prefix: "a"}},
		"duplicate id": {{ID: "a", Prefix: "/a"}, {ID: "a", Prefix: "/b"}},
		"two roots":    {{ID: "a"}, {ID: "b", Prefix: "/"}},
		"same prefix":  {{ID: "a", Prefix: "/x"}, {ID: "b", Prefix: "/x/"}},
	}
	for name, apps := range cases {
		cfg := DefaultPartyConfig()
		cfg.Apps = apps
		if err := ValidatePartyConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	cfg := DefaultPartyConfig()
	cfg.InvitePath = "__invite__"
	if err := ValidatePartyConfig(cfg); err == nil {
		t.Fatalf("expected invite path error")
	}
	if err := ValidatePartyConfig(DefaultPartyConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadPartyConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadPartyConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}
