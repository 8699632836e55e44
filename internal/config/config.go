package config

import (
	"os"
	"path/filepath"
)

// Config holds launcher paths and remote endpoints.
// Persisted user settings live in Settings (see settings.go).
type Config struct {
	HomeDir      string // launcher state directory (settings, caches, pin files)
	InstallsDir  string // installed game versions, one folder per version
	ObjectCache  string // content-addressed object store for rehydration
	TempDir      string // scratch space for downloads and extraction
	InfoURL      string // signed launcher-info blob
	DevCenterURL string // DevBuild API base
	ExtractTool  string // external archive extractor (empty = built-in fallback)
	PckTool      string // external .pck repack tool
	Store        string // detected storefront ("" when not a store build)
}

// Defaults returns the standard directory layout under the user's home.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".thrive-launcher")
	return Config{
		HomeDir:      base,
		InstallsDir:  filepath.Join(base, "installed"),
		ObjectCache:  filepath.Join(base, "dehydrated"),
		TempDir:      filepath.Join(base, "temp"),
		InfoURL:      "https://launcher.thrivegame.org/info/launcher_info.bin",
		DevCenterURL: "https://dev.thrivegame.org",
		PckTool:      "godotpcktool",
	}
}

// Load returns defaults with the LAUNCHER_HOME override applied.
// Flag overrides are layered on top by the command layer.
func Load() Config {
	cfg := Defaults()
	if v := os.Getenv("LAUNCHER_HOME"); v != "" {
		cfg.HomeDir = v
		cfg.InstallsDir = filepath.Join(v, "installed")
		cfg.ObjectCache = filepath.Join(v, "dehydrated")
		cfg.TempDir = filepath.Join(v, "temp")
	}
	return cfg
}

// InfoCachePath is where the last successfully verified info blob is kept.
func (c Config) InfoCachePath() string {
	return filepath.Join(c.HomeDir, "launcher_info.bin")
}

// UpdateRecordPath is the persisted auto-update attempt record.
func (c Config) UpdateRecordPath() string {
	return filepath.Join(c.HomeDir, "update_attempt.json")
}

// SettingsPath is the persisted user settings file.
func (c Config) SettingsPath() string {
	return filepath.Join(c.HomeDir, "settings.json")
}
