package main

import (
	"fmt"

	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

type devBuildRow struct {
	ID        int64  `json:"id" yaml:"id"`
	BuildHash string `json:"build_hash" yaml:"build_hash"`
	Verified  bool   `json:"verified" yaml:"verified"`
	Anonymous bool   `json:"anonymous" yaml:"anonymous"`
	Installed string `json:"installed,omitempty" yaml:"installed,omitempty"`
}

// handleDevBuild resolves a channel or manual id to an exact build and
// installs it unless --resolve-only was given.
func handleDevBuild(d *Deps, selection string, resolveOnly bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	v, err := devBuildFor(selection)
	if err != nil {
		return err
	}
	if err := v.Resolve(ctx, d.DevCenter); err != nil {
		return exitcodes.WrapError(exitcodes.NetworkError, "resolve devbuild", err)
	}
	exact, err := v.Exact()
	if err != nil {
		return err
	}

	row := devBuildRow{
		ID:        exact.ID,
		BuildHash: exact.BuildHash,
		Verified:  exact.Verified,
		Anonymous: exact.Anonymous,
	}

	if !resolveOnly {
		path, err := d.ensureInstalled(ctx, v)
		if err != nil {
			return err
		}
		row.Installed = path
	}

	if d.Printer.Structured(row) {
		return nil
	}

	d.Printer.KeyValueLine("Build", fmt.Sprintf("%d", exact.ID), "")
	d.Printer.KeyValueLine("Hash", exact.BuildHash, "dim")
	if exact.Anonymous && !exact.Verified {
		d.Printer.Warn("this is an unverified anonymous build; only play it if you trust the uploader")
	}
	if row.Installed != "" {
		d.Printer.Success("devbuild installed at " + row.Installed)
	}
	return nil
}

// devBuildFor maps a selection string (botd, latest, or a numeric id) to
// a DevBuild version.
func devBuildFor(selection string) (*versions.DevBuildVersion, error) {
	switch selection {
	case "botd":
		return &versions.DevBuildVersion{Channel: versions.BuildOfTheDay}, nil
	case "latest":
		return &versions.DevBuildVersion{Channel: versions.LatestBuild}, nil
	}
	if id, ok := parseBuildID(selection); ok {
		return &versions.DevBuildVersion{Channel: versions.ManuallySelected, ManualID: id}, nil
	}
	return nil, exitcodes.InvalidArgsErrorf("invalid devbuild selection %q (use botd, latest or a build id)", selection)
}
