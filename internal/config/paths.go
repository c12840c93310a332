package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the on-disk layout under the application home.
type Paths struct {
	Home       string
	ConfigDir  string
	StoriesDir string
	AudioDir   string
	LogsDir    string
}

// ResolveHome picks the application home: override, then $POLYGLOT_HOME,
// then ~/.local/share/polyglot-stories.
func ResolveHome(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	if env := os.Getenv("POLYGLOT_HOME"); env != "" {
		return filepath.Abs(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "polyglot-stories"), nil
}

// NewPaths lays out the directories under home.
func NewPaths(home string) Paths {
	return Paths{
		Home:       home,
		ConfigDir:  filepath.Join(home, "config"),
		StoriesDir: filepath.Join(home, "stories"),
		AudioDir:   filepath.Join(home, "audio"),
		LogsDir:    filepath.Join(home, "logs"),
	}
}

// ConfigFile is the YAML application config.
func (p Paths) ConfigFile() string { return filepath.Join(p.ConfigDir, "config.yaml") }

// SettingsFile is the JSON learner settings record.
func (p Paths) SettingsFile() string { return filepath.Join(p.ConfigDir, "app_config.json") }

// Database is the default SQLite database file.
func (p Paths) Database() string { return filepath.Join(p.Home, "polyglot.db") }

// Ensure creates every directory of the layout.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Home, p.ConfigDir, p.StoriesDir, p.AudioDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
