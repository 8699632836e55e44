// Package autoupdate drives the launcher's self-update: download and
// verify an installer payload, hand off to the platform's installer
// mechanism, and track the attempt in a persisted record so a failed
// update is detected on the next start.
package autoupdate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/thrivegame/thrive-launcher-cli/internal/download"
	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	"github.com/thrivegame/thrive-launcher-cli/internal/launcherinfo"
)

// StartDetachedFunc launches a process that must survive the launcher
// exiting.
type StartDetachedFunc func(name string, args ...string) error

// Options configures a Driver.
type Options struct {
	RecordPath     string
	DownloadDir    string
	CurrentVersion string
	Downloader     *download.Downloader
	StartDetached  StartDetachedFunc
	GOOS           string
}

// Driver performs and checks self-update attempts.
type Driver struct {
	opts Options
}

// New creates a driver, filling in defaults.
func New(opts Options) *Driver {
	if opts.Downloader == nil {
		opts.Downloader = download.New()
	}
	if opts.StartDetached == nil {
		opts.StartDetached = startDetached
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	return &Driver{opts: opts}
}

// IsNewerVersion reports whether latest is strictly newer than current.
// Unparseable versions never trigger an update.
func IsNewerVersion(current, latest string) bool {
	vc, vl := "v"+strings.TrimPrefix(current, "v"), "v"+strings.TrimPrefix(latest, "v")
	if !semver.IsValid(vc) || !semver.IsValid(vl) {
		return false
	}
	return semver.Compare(vl, vc) > 0
}

// PerformAutoUpdate downloads, verifies and hands off the installer. On
// success the caller should close the launcher so the installer can
// replace it. The attempt record stays pending until the next start
// proves the version changed.
func (d *Driver) PerformAutoUpdate(ctx context.Context, dl launcherinfo.DownloadMirrors) error {
	rec, err := LoadRecord(d.opts.RecordPath)
	if err != nil {
		return err
	}
	// A recorded version differing from the running one means this is a
	// fresh update cycle, not a resumed pending one.
	if rec == nil || rec.PreviousLauncherVersion != d.opts.CurrentVersion {
		rec = &Record{PreviousLauncherVersion: d.opts.CurrentVersion}
	}
	if err := SaveRecord(d.opts.RecordPath, rec); err != nil {
		return err
	}

	url, err := dl.FirstMirror()
	if err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if err := os.MkdirAll(d.opts.DownloadDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(d.opts.DownloadDir, dl.LocalFileName)

	digest, err := d.opts.Downloader.Download(ctx, url, dest, download.SHA3256, nil)
	if err != nil {
		return exitcodes.DownloadErr("download launcher update", err)
	}
	rec.UpdateFiles = append(rec.UpdateFiles, dest)
	if err := SaveRecord(d.opts.RecordPath, rec); err != nil {
		return err
	}

	if err := download.CheckHash(dest, digest, dl.Hash); err != nil {
		_ = os.Remove(dest)
		return exitcodes.DownloadErr("verify launcher update", err)
	}

	return d.handOff(dest)
}

// handOff starts the platform's installer mechanism, detached so it
// survives the launcher exiting.
func (d *Driver) handOff(installerPath string) error {
	switch d.opts.GOOS {
	case "windows":
		// explorer re-parents the launched installer away from us.
		return d.opts.StartDetached("explorer.exe", installerPath)
	case "darwin":
		return d.opts.StartDetached("open", installerPath)
	default:
		return fmt.Errorf("auto-update is not supported for unpacked Linux builds; download the new release manually")
	}
}

// CheckFailedAutoUpdate inspects the persisted record on start: a recorded
// version equal to the running one means the previous attempt never
// actually updated the launcher. A differing record means the update
// landed and the record is cleared.
func (d *Driver) CheckFailedAutoUpdate() (failed bool, rec *Record, err error) {
	rec, err = LoadRecord(d.opts.RecordPath)
	if err != nil || rec == nil {
		return false, nil, err
	}
	if rec.PreviousLauncherVersion == d.opts.CurrentVersion {
		return true, rec, nil
	}
	return false, nil, ClearRecord(d.opts.RecordPath)
}

// RetryPending re-runs the platform hand-off for an already-downloaded
// installer from a stuck attempt.
func (d *Driver) RetryPending(rec *Record) error {
	for i := len(rec.UpdateFiles) - 1; i >= 0; i-- {
		if _, err := os.Stat(rec.UpdateFiles[i]); err == nil {
			return d.handOff(rec.UpdateFiles[i])
		}
	}
	return fmt.Errorf("no downloaded installer left to retry")
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	// Release instead of waiting so the child is not tied to us.
	return cmd.Process.Release()
}
