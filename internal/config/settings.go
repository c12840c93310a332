package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings is the learner's settings record.
type Settings struct {
	Language      string `json:"language"`
	Level         string `json:"level"`
	AutoTranslate bool   `json:"auto_translate"`
	DailyGoal     int    `json:"daily_goal"`
}

// DefaultSettings returns the settings used whenever none are stored.
func DefaultSettings() Settings {
	return Settings{
		Language:      "russian",
		Level:         "beginner",
		AutoTranslate: true,
		DailyGoal:     1,
	}
}

// SettingKeys lists the keys accepted by Settings.Set.
var SettingKeys = []string{"language", "level", "auto_translate", "daily_goal"}

// Set updates one setting from its string form.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ReplaceAll(strings.ToLower(key), "-", "_") {
	case "language":
		lang, ok := LookupLanguage(value)
		if !ok {
			return fmt.Errorf("unknown language %q (available: %s)", value, strings.Join(LanguageKeys(), ", "))
		}
		s.Language = lang.Key
	case "level":
		lvl, ok := LookupLevel(value)
		if !ok {
			return fmt.Errorf("unknown level %q (available: %s)", value, strings.Join(LevelKeys(), ", "))
		}
		s.Level = lvl.Key
	case "auto_translate", "autotranslate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto_translate must be true or false, got %q", value)
		}
		s.AutoTranslate = b
	case "daily_goal", "dailygoal":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("daily_goal must be a positive number, got %q", value)
		}
		s.DailyGoal = n
	default:
		return fmt.Errorf("unknown setting %q (available: %s)", key, strings.Join(SettingKeys, ", "))
	}
	return nil
}

// SettingsManager loads and saves the settings file.
type SettingsManager struct {
	path string
}

// NewSettingsManager creates a manager for the settings file at path.
func NewSettingsManager(path string) *SettingsManager {
	return &SettingsManager{path: path}
}

// Path returns the settings file location.
func (m *SettingsManager) Path() string { return m.path }

// Load reads the settings. When the file does not exist the defaults are
// written and returned. Fields missing from the file keep their defaults.
func (m *SettingsManager) Load() (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
		if err := m.Save(&s); err != nil {
			return nil, err
		}
		return &s, nil
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", m.path, err)
	}
	if s.DailyGoal < 1 {
		s.DailyGoal = 1
	}
	return &s, nil
}

// Save replaces the settings file atomically.
func (m *SettingsManager) Save(s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := WriteFileAtomic(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
