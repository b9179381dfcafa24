package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("LEXCAL_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.MaxRounds != 5 {
		t.Fatalf("MaxRounds = %d, want 5", cfg.Model.MaxRounds)
	}
	if cfg.History.KeepRecent != 3 || cfg.History.MaxContentChars != 1000 {
		t.Fatalf("history defaults = %d/%d", cfg.History.KeepRecent, cfg.History.MaxContentChars)
	}
	if cfg.Server.Listen != ":8088" {
		t.Fatalf("Listen = %q", cfg.Server.Listen)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LEXCAL_HOME", home)
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := `{"backend":{"baseUrl":"http://cal.internal:9000"},"model":{"name":"gpt-4o-mini","maxRounds":2}}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(file), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LEXCAL_MODEL_MAX_ROUNDS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://cal.internal:9000" {
		t.Fatalf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Model.Name != "gpt-4o-mini" {
		t.Fatalf("Name = %q", cfg.Model.Name)
	}
	if cfg.Model.MaxRounds != 4 {
		t.Fatalf("MaxRounds = %d, want env override 4", cfg.Model.MaxRounds)
	}
}

func TestAPIKeyFallback(t *testing.T) {
	t.Setenv("LEXCAL_HOME", t.TempDir())
	t.Setenv("LEXCAL_MODEL_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.APIKey != "sk-test" {
		t.Fatalf("APIKey = %q, want fallback", cfg.Model.APIKey)
	}
}
