package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings are the user-editable game launch options, persisted as JSON.
type Settings struct {
	DisableVideos   bool     `json:"disable_videos"`
	ForceGLBackend  bool     `json:"force_gl_backend"`
	AudioLatencyMS  int      `json:"audio_latency_ms"` // 0 = engine default
	ExtraFlags      []string `json:"extra_flags,omitempty"`
	AutoRestart     bool     `json:"auto_restart"`
	MaxStartRetries int      `json:"max_start_retries"`
	HideOnPlay      bool     `json:"hide_on_play"`
	DownloadLanes   int      `json:"download_lanes"`
}

// DefaultSettings mirrors a fresh install.
func DefaultSettings() Settings {
	return Settings{
		AutoRestart:     true,
		MaxStartRetries: 5,
		DownloadLanes:   4,
	}
}

// LoadSettings reads the settings file, falling back to defaults when the
// file is missing. A malformed file is an error so bad edits surface.
func LoadSettings(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	s := DefaultSettings()
	if err := json.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	if s.MaxStartRetries <= 0 {
		s.MaxStartRetries = DefaultSettings().MaxStartRetries
	}
	if s.DownloadLanes <= 0 {
		s.DownloadLanes = DefaultSettings().DownloadLanes
	}
	return s, nil
}

// SaveSettings writes settings as indented JSON, creating parent dirs.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
