package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsManager_LoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "app_config.json")
	m := NewSettingsManager(path)

	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), *s)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Settings
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, DefaultSettings(), onDisk)

	// A second load of an absent file produces the same record.
	require.NoError(t, os.Remove(path))
	again, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestSettingsManager_SaveLoadRoundTrip(t *testing.T) {
	m := NewSettingsManager(filepath.Join(t.TempDir(), "app_config.json"))
	want := Settings{Language: "urdu", Level: "advanced", AutoTranslate: false, DailyGoal: 3}

	require.NoError(t, m.Save(&want))
	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	entries, err := os.ReadDir(filepath.Dir(m.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSettingsManager_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"language": "english", "daily_goal": 0}`), 0o644))

	s, err := NewSettingsManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "english", s.Language)
	assert.Equal(t, "beginner", s.Level)
	assert.True(t, s.AutoTranslate)
	assert.Equal(t, 1, s.DailyGoal)
}

func TestSettingsManager_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"language": `), 0o644))

	_, err := NewSettingsManager(path).Load()
	assert.Error(t, err)
}

func TestSettings_Set(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(t *testing.T, s Settings)
		wantErr    bool
	}{
		{key: "language", value: "UR", check: func(t *testing.T, s Settings) { assert.Equal(t, "urdu", s.Language) }},
		{key: "language", value: "klingon", wantErr: true},
		{key: "level", value: "b2-c1", check: func(t *testing.T, s Settings) { assert.Equal(t, "advanced", s.Level) }},
		{key: "level", value: "expert", wantErr: true},
		{key: "auto-translate", value: "false", check: func(t *testing.T, s Settings) { assert.False(t, s.AutoTranslate) }},
		{key: "auto_translate", value: "maybe", wantErr: true},
		{key: "daily_goal", value: "5", check: func(t *testing.T, s Settings) { assert.Equal(t, 5, s.DailyGoal) }},
		{key: "daily_goal", value: "0", wantErr: true},
		{key: "theme", value: "dark", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			s := DefaultSettings()
			err := s.Set(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, DefaultSettings(), s, "failed Set must not modify settings")
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestCatalogs(t *testing.T) {
	assert.Equal(t, []string{"english", "russian", "urdu"}, LanguageKeys())
	assert.Equal(t, []string{"beginner", "intermediate", "advanced"}, LevelKeys())

	ru, ok := LookupLanguage("Russian")
	require.True(t, ok)
	assert.Equal(t, "ru", ru.Code)

	lvl, ok := LookupLevel("A1")
	require.True(t, ok)
	assert.Equal(t, "beginner", lvl.Key)
}
