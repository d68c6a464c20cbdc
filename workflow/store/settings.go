// ABOUTME: App settings persisted as a single JSON file in the data directory.
// ABOUTME: Holds per-type default models and edge appearance, seeding the node catalog.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings are the user-tunable defaults applied to new nodes and edges.
// Empty fields mean "no default"; the zero value is a valid settings object.
type Settings struct {
	TextModel    string `json:"textModel,omitempty"`
	ImageModel   string `json:"imageModel,omitempty"`
	VideoModel   string `json:"videoModel,omitempty"`
	AudioModel   string `json:"audioModel,omitempty"`
	UpscaleModel string `json:"upscaleModel,omitempty"`
	EdgeType     string `json:"edgeType,omitempty"`
}

// ModelDefaults maps node type names to their configured default model,
// omitting types without one. The result seeds the builtin node catalog.
func (s Settings) ModelDefaults() map[string]string {
	defaults := map[string]string{}
	for typeName, model := range map[string]string{
		"text":    s.TextModel,
		"image":   s.ImageModel,
		"video":   s.VideoModel,
		"audio":   s.AudioModel,
		"upscale": s.UpscaleModel,
	} {
		if model != "" {
			defaults[typeName] = model
		}
	}
	return defaults
}

// SettingsStore persists settings as settings.json in the data directory.
type SettingsStore struct {
	path string
}

// NewSettingsStore creates a store writing to <dataDir>/settings.json.
func NewSettingsStore(dataDir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(dataDir, "settings.json")}
}

// Load reads the settings file. A missing file yields zero-value settings.
func (s *SettingsStore) Load() (Settings, error) {
	contents, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(contents, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}

// Save writes the settings file with atomic write (write to .tmp, fsync,
// rename). Creates the data directory if it does not exist.
func (s *SettingsStore) Save(settings Settings) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	jsonData, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tmpPath := s.path + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}

	if _, err := tmpFile.Write(jsonData); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write settings data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync settings file: %w", err)
	}
	_ = tmpFile.Close()

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename settings file: %w", err)
	}

	return nil
}
