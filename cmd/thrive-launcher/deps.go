package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/thrivegame/thrive-launcher-cli/internal/config"
	"github.com/thrivegame/thrive-launcher-cli/internal/devcenter"
	"github.com/thrivegame/thrive-launcher-cli/internal/download"
	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	"github.com/thrivegame/thrive-launcher-cli/internal/installer"
	"github.com/thrivegame/thrive-launcher-cli/internal/launcherinfo"
	"github.com/thrivegame/thrive-launcher-cli/internal/rehydrate"
	"github.com/thrivegame/thrive-launcher-cli/internal/store"
	"github.com/thrivegame/thrive-launcher-cli/internal/tools"
	ui "github.com/thrivegame/thrive-launcher-cli/internal/ui"
	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg       config.Config
	Settings  config.Settings
	Printer   ui.Printer
	Loader    *launcherinfo.Loader
	DevCenter *devcenter.Client
	Store     store.Detection
	Prompter  Prompter
	Out       io.Writer
}

// newDeps creates production dependencies from the current flags and config.
func newDeps() (*Deps, error) {
	cfg := loadCfg()
	settings, err := config.LoadSettings(cfg.SettingsPath())
	if err != nil {
		return nil, exitcodes.WrapError(exitcodes.ValidationError, "load settings", err)
	}
	return &Deps{
		Cfg:       cfg,
		Settings:  settings,
		Printer:   ui.NewPrinterFromGlobal(flagOutput),
		Loader:    launcherinfo.New(),
		DevCenter: devcenter.New(cfg.DevCenterURL),
		Store:     store.Detect(),
		Prompter:  &ttyPrompter{},
		Out:       os.Stdout,
	}, nil
}

// loadInfo fetches the signed info blob, falling back to the verified
// cached copy when the network is unavailable. Signature failures never
// fall back: a blob that fails verification is a hard stop.
func (d *Deps) loadInfo(ctx context.Context) (*launcherinfo.Info, error) {
	info, err := d.Loader.Load(ctx, d.Cfg.InfoURL, d.Cfg.InfoCachePath())
	if err == nil {
		return info, nil
	}

	var dataErr *launcherinfo.ManifestDataError
	if errors.Is(err, launcherinfo.ErrInvalidSignature) ||
		errors.Is(err, launcherinfo.ErrAllKeysExpired) ||
		errors.As(err, &dataErr) {
		return nil, exitcodes.WrapError(exitcodes.ValidationError, "launcher info rejected", err)
	}

	cached, cerr := d.Loader.LoadFromCache(d.Cfg.InfoCachePath())
	if cerr != nil {
		return nil, exitcodes.WrapError(exitcodes.NetworkError, "fetch launcher info", err)
	}
	log.Printf("warning: using cached launcher info, network fetch failed: %v", err)
	return cached, nil
}

// platformKey is the platform name used in the info manifest.
func platformKey() string {
	if runtime.GOOS == "darwin" {
		return "mac"
	}
	return runtime.GOOS
}

// selectVersion maps a user-supplied version name to a playable version.
// An empty name means the store build when detected, the latest stable
// release otherwise.
func (d *Deps) selectVersion(info *launcherinfo.Info, name string) (versions.PlayableVersion, error) {
	if name == "" {
		if d.Store.Store != "" {
			return &versions.StoreVersion{Store: d.Store.Store}, nil
		}
		name = "latest"
	}
	switch name {
	case "latest":
		spec := info.LatestStable()
		if spec == nil {
			return nil, exitcodes.PreconditionError("no stable release available")
		}
		return releaseFor(spec)
	case "store":
		if d.Store.Store == "" {
			return nil, exitcodes.PreconditionError("this launcher was not installed through a store")
		}
		return &versions.StoreVersion{Store: d.Store.Store}, nil
	case "botd":
		return &versions.DevBuildVersion{Channel: versions.BuildOfTheDay}, nil
	case "latest-build":
		return &versions.DevBuildVersion{Channel: versions.LatestBuild}, nil
	}
	spec := info.FindVersion(name)
	if spec == nil {
		return nil, exitcodes.InvalidArgsErrorf("unknown version %q (try the versions command)", name)
	}
	return releaseFor(spec)
}

func releaseFor(spec *launcherinfo.VersionSpec) (versions.PlayableVersion, error) {
	dl, ok := spec.Platforms[platformKey()]
	if !ok {
		return nil, exitcodes.PreconditionErrorf("release %s has no %s build", spec.ReleaseNumber, platformKey())
	}
	return &versions.ReleaseVersion{
		Release:  spec.ReleaseNumber,
		Platform: platformKey(),
		Download: dl,
		Stable:   spec.Stable,
		Latest:   spec.Latest,
	}, nil
}

// newInstaller wires the install pipeline: downloader with progress,
// external or built-in extraction, and rehydration when a pck tool is
// configured.
func (d *Deps) newInstaller() (*installer.Installer, error) {
	var rehydrator installer.Rehydrator
	pck := tools.PckTool{Tool: d.Cfg.PckTool}
	if pck.Available() {
		var progress rehydrate.ProgressFunc
		if d.showProgress() {
			progress = ui.NewUnitProgress(d.Out, "Rehydrating").Update
		}
		svc, err := rehydrate.New(rehydrate.Options{
			CacheDir: d.Cfg.ObjectCache,
			Lanes:    d.Settings.DownloadLanes,
			Resolver: d.DevCenter,
			Repacker: pck,
			Progress: progress,
		})
		if err != nil {
			return nil, err
		}
		rehydrator = svc
	}

	var progress download.ProgressFunc
	if d.showProgress() {
		progress = downloadProgress(d.Out, "Downloading")
	}
	return installer.New(installer.Options{
		InstallsDir: d.Cfg.InstallsDir,
		TempDir:     d.Cfg.TempDir,
		Extract:     tools.Extractor{Tool: d.Cfg.ExtractTool},
		Rehydrator:  rehydrator,
		Downloader:  download.New(),
		Progress:    progress,
	}), nil
}

// ensureInstalled resolves DevBuild channels and runs the installer,
// returning the install folder (empty for store builds).
func (d *Deps) ensureInstalled(ctx context.Context, v versions.PlayableVersion) (string, error) {
	// A full disk fails unhelpfully halfway through a download.
	if usage, err := disk.Usage(filepath.Dir(d.Cfg.HomeDir)); err == nil && usage.Free < minFreeSpace {
		log.Printf("warning: only %s free under %s; installs may fail",
			ui.FormatBytes(int64(usage.Free)), d.Cfg.HomeDir)
	}
	if dev, ok := v.(*versions.DevBuildVersion); ok {
		if err := dev.Resolve(ctx, d.DevCenter); err != nil {
			return "", exitcodes.WrapError(exitcodes.NetworkError, "resolve devbuild", err)
		}
		if err := d.confirmUnverifiedBuild(dev); err != nil {
			return "", err
		}
	}
	inst, err := d.newInstaller()
	if err != nil {
		return "", err
	}
	return inst.Ensure(ctx, v)
}

// confirmUnverifiedBuild gates installs of anonymous uploads nobody has
// verified: they run arbitrary code, so the user must opt in.
func (d *Deps) confirmUnverifiedBuild(dev *versions.DevBuildVersion) error {
	exact, err := dev.Exact()
	if err != nil {
		return err
	}
	if exact.Verified || !exact.Anonymous {
		return nil
	}
	ok, err := confirm(d.Prompter,
		fmt.Sprintf("devbuild %d is an unverified anonymous upload; install anyway?", exact.ID))
	if err != nil {
		return err
	}
	if !ok {
		return exitcodes.PreconditionErrorf(
			"refusing unverified anonymous devbuild %d (pass --yes to accept it)", exact.ID)
	}
	return nil
}

func (d *Deps) showProgress() bool {
	return !flagQuiet && d.Printer.Format() == "text"
}

// downloadProgress adapts a byte-progress callback to a lazily created
// progress bar, since the total is only known once headers arrive.
func downloadProgress(out io.Writer, verb string) download.ProgressFunc {
	var bar *ui.ProgressBar
	return func(downloaded, total int64) {
		if bar == nil {
			bar = ui.NewProgressBar(out, verb, total)
		}
		bar.Update(downloaded)
		if total > 0 && downloaded >= total {
			bar.Finish()
		}
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// installFolderOf returns the on-disk folder of a version, without
// installing anything.
func (d *Deps) installFolderOf(v versions.PlayableVersion) string {
	folder := v.FolderName()
	if folder == "" {
		return ""
	}
	return filepath.Join(d.Cfg.InstallsDir, folder)
}
