// Package config holds the application configuration (config.yaml), the
// learner settings record (app_config.json) and the language and level
// catalogs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AppName = "Polyglot AI Storyteller"
	Version = "3.1.0"

	DefaultEndpoint = "http://localhost:11434/api/chat"
	DefaultModel    = "gpt-oss:120b-cloud"
)

// Completion providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ValidProviders lists the supported completion providers.
var ValidProviders = []string{ProviderOllama, ProviderOpenAI, ProviderGemini}

// Storage backends.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	BackendSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	BackendPostgres = "postgres"
)

// ValidBackends lists the supported storage backends.
var ValidBackends = []string{BackendJSON, BackendSQLite, BackendSQLite3, BackendPostgres}

// Narration engines.
const (
	EngineEspeak = "espeak"
	EngineGemini = "gemini"
)

// Config holds all polyglot configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Learner name recorded with saved lessons
	User string `yaml:"user"`

	Completion CompletionConfig `yaml:"completion"`
	Storage    StorageConfig    `yaml:"storage"`
	Narration  NarrationConfig  `yaml:"narration"`
	Logging    LoggingConfig    `yaml:"logging"`
	UI         UIConfig         `yaml:"ui"`
}

// CompletionConfig configures the chat-completion service.
type CompletionConfig struct {
	Provider     string `yaml:"provider"` // ollama, openai, gemini
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key,omitempty"`
	Timeout      string `yaml:"timeout"` // per attempt
	MaxRetries   int    `yaml:"max_retries"`
	RetryBackoff string `yaml:"retry_backoff"`

	// RequireReachable makes startup fail when the service cannot be reached.
	RequireReachable bool `yaml:"require_reachable"`
}

// StorageConfig configures lesson persistence.
type StorageConfig struct {
	Backend string `yaml:"backend"` // json, sqlite, sqlite3, postgres
	DSN     string `yaml:"dsn"`     // file path for sqlite, URL for postgres; empty = <home>/polyglot.db
}

// NarrationConfig configures text-to-speech.
type NarrationConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Engine      string `yaml:"engine"` // espeak, gemini
	Command     string `yaml:"command"`
	Player      string `yaml:"player"`
	Voice       string `yaml:"voice,omitempty"`
	Model       string `yaml:"model,omitempty"` // gemini TTS model
	Concurrency int    `yaml:"concurrency"`
	Timeout     string `yaml:"timeout"`
}

// UIConfig configures terminal presentation.
type UIConfig struct {
	Theme    string `yaml:"theme"` // auto, dark, light, notty
	WordWrap int    `yaml:"word_wrap"`
	Spinner  bool   `yaml:"spinner"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    AppName,
		Version: Version,
		User:    defaultUser(),

		Completion: CompletionConfig{
			Provider:         ProviderOllama,
			Endpoint:         DefaultEndpoint,
			Model:            DefaultModel,
			Timeout:          "90s",
			MaxRetries:       3,
			RetryBackoff:     "2s",
			RequireReachable: true,
		},

		Storage: StorageConfig{
			Backend: BackendJSON,
		},

		Narration: NarrationConfig{
			Enabled:     true,
			Engine:      EngineEspeak,
			Command:     "espeak-ng",
			Player:      "aplay",
			Model:       "gemini-2.5-flash-preview-tts",
			Concurrency: 4,
			Timeout:     "30s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 80,
			Spinner:  true,
		},
	}
}

func defaultUser() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if u := os.Getenv(k); u != "" {
			return u
		}
	}
	return "learner"
}

// Load reads the configuration from path. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("POLYGLOT_PROVIDER"); p != "" {
		c.Completion.Provider = strings.ToLower(p)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Completion.Provider == ProviderOpenAI {
		c.Completion.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Completion.Provider == ProviderGemini {
		c.Completion.APIKey = key
	}
	if url := os.Getenv("POLYGLOT_ENDPOINT"); url != "" {
		c.Completion.Endpoint = url
	}
	if model := os.Getenv("POLYGLOT_MODEL"); model != "" {
		c.Completion.Model = model
	}

	if dsn := os.Getenv("POLYGLOT_DB"); dsn != "" {
		c.Storage.DSN = dsn
		if c.Storage.Backend == BackendJSON {
			c.Storage.Backend = BackendSQLite
		}
	}
	if b := os.Getenv("POLYGLOT_STORE"); b != "" {
		c.Storage.Backend = strings.ToLower(b)
	}
}

// GetCompletionTimeout returns the per-attempt completion timeout.
func (c *Config) GetCompletionTimeout() time.Duration {
	return parseDuration(c.Completion.Timeout, 90*time.Second)
}

// GetRetryBackoff returns the fixed delay between completion attempts.
func (c *Config) GetRetryBackoff() time.Duration {
	return parseDuration(c.Completion.RetryBackoff, 2*time.Second)
}

// GetNarrationTimeout returns the timeout for one synthesis call.
func (c *Config) GetNarrationTimeout() time.Duration {
	return parseDuration(c.Narration.Timeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.Completion.Provider) {
		return fmt.Errorf("invalid completion provider: %s (valid: %v)", c.Completion.Provider, ValidProviders)
	}
	switch c.Completion.Provider {
	case ProviderOllama:
		if c.Completion.Endpoint == "" {
			return fmt.Errorf("completion endpoint not configured (set completion.endpoint or POLYGLOT_ENDPOINT)")
		}
	case ProviderOpenAI:
		if c.Completion.APIKey == "" && c.Completion.Endpoint == "" {
			return fmt.Errorf("openai provider needs an API key (OPENAI_API_KEY) or a compatible endpoint")
		}
	case ProviderGemini:
		if c.Completion.APIKey == "" {
			return fmt.Errorf("gemini provider needs an API key (set GEMINI_API_KEY)")
		}
	}
	if c.Completion.MaxRetries < 0 {
		return fmt.Errorf("completion.max_retries must not be negative")
	}

	if !contains(ValidBackends, c.Storage.Backend) {
		return fmt.Errorf("invalid storage backend: %s (valid: %v)", c.Storage.Backend, ValidBackends)
	}
	if c.Storage.Backend == BackendPostgres && c.Storage.DSN == "" {
		return fmt.Errorf("postgres storage needs storage.dsn or POLYGLOT_DB")
	}

	if c.Narration.Enabled && c.Narration.Engine != EngineEspeak && c.Narration.Engine != EngineGemini {
		return fmt.Errorf("invalid narration engine: %s", c.Narration.Engine)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
