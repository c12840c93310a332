package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"POLYGLOT_PROVIDER", "POLYGLOT_ENDPOINT", "POLYGLOT_MODEL",
		"POLYGLOT_DB", "POLYGLOT_STORE", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != AppName {
		t.Errorf("expected Name=%s, got %s", AppName, cfg.Name)
	}
	if cfg.Completion.Provider != ProviderOllama {
		t.Errorf("expected Provider=ollama, got %s", cfg.Completion.Provider)
	}
	if cfg.Completion.Endpoint != "http://localhost:11434/api/chat" {
		t.Errorf("unexpected endpoint %s", cfg.Completion.Endpoint)
	}
	if cfg.Completion.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.Completion.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_LoadMissingReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Completion.Model != DefaultModel {
		t.Errorf("expected default model, got %s", cfg.Completion.Model)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config", "config.yaml")

	cfg := DefaultConfig()
	cfg.Completion.Provider = ProviderOpenAI
	cfg.Completion.APIKey = "sk-test"
	cfg.Storage.Backend = BackendSQLite
	cfg.Logging.Categories = map[string]bool{"api": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Completion.Provider != ProviderOpenAI {
		t.Errorf("expected Provider=openai, got %s", loaded.Completion.Provider)
	}
	if loaded.Completion.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.Completion.APIKey)
	}
	if loaded.Storage.Backend != BackendSQLite {
		t.Errorf("expected Backend=sqlite, got %s", loaded.Storage.Backend)
	}
	if enabled, ok := loaded.Logging.Categories["api"]; !ok || enabled {
		t.Errorf("expected api category disabled, got %v", loaded.Logging.Categories)
	}
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("completion: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad provider", func(c *Config) { c.Completion.Provider = "zai" }, true},
		{"ollama without endpoint", func(c *Config) { c.Completion.Endpoint = "" }, true},
		{"gemini without key", func(c *Config) { c.Completion.Provider = ProviderGemini }, true},
		{"gemini with key", func(c *Config) {
			c.Completion.Provider = ProviderGemini
			c.Completion.APIKey = "k"
		}, false},
		{"bad backend", func(c *Config) { c.Storage.Backend = "mongo" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, true},
		{"bad narration engine", func(c *Config) { c.Narration.Engine = "festival" }, true},
		{"negative retries", func(c *Config) { c.Completion.MaxRetries = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetCompletionTimeout(); got != 90*time.Second {
		t.Errorf("GetCompletionTimeout() = %v", got)
	}
	if got := cfg.GetRetryBackoff(); got != 2*time.Second {
		t.Errorf("GetRetryBackoff() = %v", got)
	}

	cfg.Completion.Timeout = "soon"
	cfg.Completion.RetryBackoff = "-1s"
	cfg.Narration.Timeout = ""
	if got := cfg.GetCompletionTimeout(); got != 90*time.Second {
		t.Errorf("invalid timeout should fall back, got %v", got)
	}
	if got := cfg.GetRetryBackoff(); got != 2*time.Second {
		t.Errorf("negative backoff should fall back, got %v", got)
	}
	if got := cfg.GetNarrationTimeout(); got != 30*time.Second {
		t.Errorf("empty narration timeout should fall back, got %v", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	if c.IsCategoryEnabled("api") {
		t.Error("nothing is enabled outside debug mode")
	}
	c.DebugMode = true
	if !c.IsCategoryEnabled("api") {
		t.Error("unlisted categories default to enabled")
	}
	c.Categories = map[string]bool{"api": false, "store": true}
	if c.IsCategoryEnabled("api") || !c.IsCategoryEnabled("store") || !c.IsCategoryEnabled("session") {
		t.Errorf("unexpected category toggles: %v", c.Categories)
	}
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	p := NewPaths(home)
	if err := p.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	for _, dir := range []string{p.ConfigDir, p.StoriesDir, p.AudioDir, p.LogsDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}
	if p.SettingsFile() != filepath.Join(home, "config", "app_config.json") {
		t.Errorf("unexpected settings path %s", p.SettingsFile())
	}
}

func TestResolveHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POLYGLOT_HOME", dir)

	got, err := ResolveHome("")
	if err != nil || got != dir {
		t.Errorf("ResolveHome(\"\") = %q, %v; want %q", got, err, dir)
	}

	override := filepath.Join(dir, "other")
	got, err = ResolveHome(override)
	if err != nil || got != override {
		t.Errorf("ResolveHome(override) = %q, %v; want %q", got, err, override)
	}
}
