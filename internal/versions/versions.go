// Package versions models the playable version variants (numbered
// releases, storefront builds, DevBuild channels) and the order they are
// presented in.
package versions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thrivegame/thrive-launcher-cli/internal/launcherinfo"
)

// BuildChannel selects which DevBuild a channel resolves to.
type BuildChannel int

const (
	BuildOfTheDay BuildChannel = iota
	LatestBuild
	ManuallySelected
)

func (c BuildChannel) String() string {
	switch c {
	case BuildOfTheDay:
		return "botd"
	case LatestBuild:
		return "latest"
	case ManuallySelected:
		return "manual"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ExactBuild is the resolved identity of one DevBuild: filled lazily by a
// DevCenter lookup, immutable afterwards.
type ExactBuild struct {
	ID           int64
	BuildHash    string
	DownloadURL  string
	DownloadHash string
	Verified     bool
	Anonymous    bool
}

// Resolver turns a channel selection into an exact build record.
type Resolver interface {
	ResolveBuild(ctx context.Context, channel BuildChannel, manualID int64) (*ExactBuild, error)
}

// PlayableVersion is one installable/runnable build the user can pick.
type PlayableVersion interface {
	// VersionName is the user-visible identity ("1.2.0", "store (steam)",
	// "devbuild (botd)").
	VersionName() string

	// FolderName is the on-disk install folder, empty for store builds
	// which never go through the install pipeline.
	FolderName() string

	// SupportsStartupDetection reports whether the build emits the
	// startup marker and correlation side file, which gates the
	// auto-restart policy.
	SupportsStartupDetection() bool
}

// ReleaseVersion is a numbered release from the signed info manifest.
type ReleaseVersion struct {
	Release  string
	Platform string
	Download launcherinfo.DownloadMirrors
	Stable   bool
	Latest   bool
}

func (r *ReleaseVersion) VersionName() string { return r.Release }

// FolderName derives the install folder from the canonical archive name,
// falling back to a Thrive-<release> convention for manifests without one.
func (r *ReleaseVersion) FolderName() string {
	name := r.Download.LocalFileName
	for _, ext := range []string{".tar.lz4", ".tar.gz", ".tar.xz", ".zip", ".7z"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	if name != "" {
		return name
	}
	return "Thrive-" + r.Release
}

func (r *ReleaseVersion) SupportsStartupDetection() bool {
	// The startup marker and side file appeared in 0.5.5.
	return compareReleases(r.Release, "0.5.5") >= 0
}

// StoreVersion is a storefront-distributed build, assumed pre-installed.
type StoreVersion struct {
	Store string
}

func (s *StoreVersion) VersionName() string            { return "store (" + s.Store + ")" }
func (s *StoreVersion) FolderName() string             { return "" }
func (s *StoreVersion) SupportsStartupDetection() bool { return true }

// DevBuildVersion selects a build by channel policy instead of number.
// Exact identity is resolved lazily and exactly once.
type DevBuildVersion struct {
	Channel  BuildChannel
	ManualID int64

	exact *ExactBuild
}

func (d *DevBuildVersion) VersionName() string {
	if d.Channel == ManuallySelected {
		return fmt.Sprintf("devbuild (%d)", d.ManualID)
	}
	return "devbuild (" + d.Channel.String() + ")"
}

// FolderName requires a resolved exact build. Callers must not trust
// folder existence checks before Resolve has run.
func (d *DevBuildVersion) FolderName() string {
	if d.exact == nil {
		return ""
	}
	return "devbuild"
}

func (d *DevBuildVersion) SupportsStartupDetection() bool { return true }

// ErrBuildUnresolved is returned when an exact build is needed before
// Resolve has run.
var ErrBuildUnresolved = errors.New("devbuild not resolved yet")

// Resolve fills the exact build record via r. Subsequent calls are no-ops.
func (d *DevBuildVersion) Resolve(ctx context.Context, r Resolver) error {
	if d.exact != nil {
		return nil
	}
	exact, err := r.ResolveBuild(ctx, d.Channel, d.ManualID)
	if err != nil {
		return err
	}
	d.exact = exact
	return nil
}

// Exact returns the resolved build record.
func (d *DevBuildVersion) Exact() (*ExactBuild, error) {
	if d.exact == nil {
		return nil, ErrBuildUnresolved
	}
	return d.exact, nil
}

// FromManifest builds the presentable version list for one platform: the
// store build when detected, both rolling DevBuild channels, and every
// release the manifest carries for the platform.
func FromManifest(info *launcherinfo.Info, platform, store string) []PlayableVersion {
	var out []PlayableVersion
	if store != "" {
		out = append(out, &StoreVersion{Store: store})
	}
	out = append(out,
		&DevBuildVersion{Channel: BuildOfTheDay},
		&DevBuildVersion{Channel: LatestBuild},
	)
	for _, v := range info.Versions {
		dl, ok := v.Platforms[platform]
		if !ok {
			continue
		}
		out = append(out, &ReleaseVersion{
			Release:  v.ReleaseNumber,
			Platform: platform,
			Download: dl,
			Stable:   v.Stable,
			Latest:   v.Latest,
		})
	}
	Sort(out)
	return out
}
