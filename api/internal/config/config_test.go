package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for k := range defaults {
		t.Setenv(strings.ToUpper(k), "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" || cfg.GeminiTemperature != 0.4 || cfg.GeminiMaxTokens != 8192 {
		t.Fatalf("unexpected gemini defaults %+v", cfg)
	}
	if cfg.Port != "8080" || cfg.DBDriver != "pgx" || cfg.ElementPolicy != "abort" || cfg.AnswerProvider != "gemini" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snipreader.yaml")
	body := "port: \"9000\"\ngemini_model: from-file\ndb_driver: sqlite\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	clearEnv(t)
	t.Setenv("GEMINI_MODEL", "from-env")
	t.Setenv("GEMINI_MAX_TOKENS", "1024")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.DBDriver != "sqlite" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.GeminiModel != "from-env" || cfg.GeminiMaxTokens != 1024 {
		t.Fatalf("env must win over file: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRequire(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Require("GEMINI_API_KEY"); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	err = cfg.Require("GEMINI_API_KEY", "TELEGRAM_BOT_TOKEN", "YC_FOLDER_ID")
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN, YC_FOLDER_ID") {
		t.Fatalf("unexpected %v", err)
	}
}
