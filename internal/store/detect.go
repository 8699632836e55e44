// Package store detects storefront-distributed launcher builds. The probe
// runs once at startup and the result is passed around explicitly.
package store

import "os"

// Detection is the storefront probe result.
type Detection struct {
	// Store is "steam", "itch", or empty for a plain build.
	Store string

	// InstallPath is where the storefront put the game, when known.
	InstallPath string
}

// Detect probes the environment for storefront markers. Store builds set
// LAUNCHER_STORE at build/package time; a Steam parent process exposes
// SteamAppId.
func Detect() Detection {
	d := Detection{
		Store:       os.Getenv("LAUNCHER_STORE"),
		InstallPath: os.Getenv("LAUNCHER_STORE_PATH"),
	}
	if d.Store == "" && os.Getenv("SteamAppId") != "" {
		d.Store = "steam"
	}
	return d
}
