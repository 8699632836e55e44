package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHomeOverride(t *testing.T) {
	t.Setenv("LAUNCHER_HOME", "/custom/home")
	cfg := Load()
	if cfg.HomeDir != "/custom/home" {
		t.Errorf("HomeDir = %q, want /custom/home", cfg.HomeDir)
	}
	if cfg.InstallsDir != filepath.Join("/custom/home", "installed") {
		t.Errorf("InstallsDir = %q, expected it under the override", cfg.InstallsDir)
	}
	if cfg.ObjectCache != filepath.Join("/custom/home", "dehydrated") {
		t.Errorf("ObjectCache = %q, expected it under the override", cfg.ObjectCache)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LAUNCHER_HOME", "")
	os.Unsetenv("LAUNCHER_HOME")
	cfg := Load()
	if cfg.HomeDir == "" {
		t.Fatal("HomeDir empty")
	}
	if cfg.InfoURL == "" || cfg.DevCenterURL == "" {
		t.Error("remote endpoints should have defaults")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s := DefaultSettings()
	s.DisableVideos = true
	s.ExtraFlags = []string{"--verbose"}
	if err := SaveSettings(path, s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !got.DisableVideos || len(got.ExtraFlags) != 1 {
		t.Errorf("settings did not round-trip: %+v", got)
	}
}

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	got, err := LoadSettings(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.MaxStartRetries != 5 || got.DownloadLanes != 4 {
		t.Errorf("defaults not applied: %+v", got)
	}
	if !got.AutoRestart {
		t.Error("AutoRestart should default to true")
	}
}

func TestLoadSettingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for malformed settings")
	}
}

func TestLoadSettingsClampsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte(`{"max_start_retries":0,"download_lanes":0}`), 0o644)
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.MaxStartRetries != 5 || got.DownloadLanes != 4 {
		t.Errorf("zero values should fall back to defaults, got %+v", got)
	}
}
