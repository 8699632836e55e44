package main

import (
	"fmt"

	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

type versionRow struct {
	Name      string `json:"name" yaml:"name"`
	Stable    bool   `json:"stable" yaml:"stable"`
	Latest    bool   `json:"latest" yaml:"latest"`
	Installed bool   `json:"installed" yaml:"installed"`
}

// handleVersions lists every playable version for this platform with its
// install state.
func handleVersions(d *Deps) error {
	ctx, cancel := signalContext()
	defer cancel()

	info, err := d.loadInfo(ctx)
	if err != nil {
		return err
	}
	list := versions.FromManifest(info, platformKey(), d.Store.Store)

	rows := make([]versionRow, 0, len(list))
	for _, v := range list {
		row := versionRow{Name: v.VersionName()}
		if r, ok := v.(*versions.ReleaseVersion); ok {
			row.Stable = r.Stable
			row.Latest = r.Latest
		}
		if folder := d.installFolderOf(v); folder != "" {
			row.Installed = dirExists(folder)
		}
		rows = append(rows, row)
	}

	if d.Printer.Structured(rows) {
		return nil
	}

	d.Printer.Header("Playable versions")
	for _, row := range rows {
		status := "available"
		if row.Installed {
			status = "installed"
		}
		tag := ""
		switch {
		case row.Latest:
			tag = " (latest)"
		case isRelease(row.Name) && !row.Stable:
			tag = " (beta)"
		}
		d.Printer.Textf("  %s %-24s %s\n",
			d.Printer.Colors.StatusIcon(status), row.Name+tag, status)
	}
	return nil
}

// isRelease reports whether a version row names a numbered release rather
// than a store or devbuild entry.
func isRelease(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c >= '0' && c <= '9'
}

// handleInstall installs one version and reports where it landed.
func handleInstall(d *Deps, name string) error {
	ctx, cancel := signalContext()
	defer cancel()

	info, err := d.loadInfo(ctx)
	if err != nil {
		return err
	}
	v, err := d.selectVersion(info, name)
	if err != nil {
		return err
	}

	path, err := d.ensureInstalled(ctx, v)
	if err != nil {
		return err
	}
	if path == "" {
		d.Printer.Info(fmt.Sprintf("%s is managed by the store, nothing to install", v.VersionName()))
		return nil
	}
	d.Printer.Success(fmt.Sprintf("%s installed at %s", v.VersionName(), path))
	return nil
}
