// Package installer orchestrates getting one playable version onto disk:
// download, hash verification, extraction, DevBuild pinning and
// rehydration of dehydrated builds.
package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thrivegame/thrive-launcher-cli/internal/download"
	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	"github.com/thrivegame/thrive-launcher-cli/internal/rehydrate"
	"github.com/thrivegame/thrive-launcher-cli/internal/tools"
	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

// PinFileName records which exact DevBuild id is installed in a folder.
const PinFileName = "devbuild_version.json"

// Rehydrator reconstructs a dehydrated build from its manifest.
type Rehydrator interface {
	Rehydrate(ctx context.Context, manifestPath string) error
}

// Options configures an Installer.
type Options struct {
	InstallsDir string
	TempDir     string
	Extract     tools.Extractor
	Rehydrator  Rehydrator
	Downloader  *download.Downloader
	Progress    download.ProgressFunc
}

// Installer runs the per-version install state machine.
type Installer struct {
	opts Options
}

// New creates an installer.
func New(opts Options) *Installer {
	if opts.Downloader == nil {
		opts.Downloader = download.New()
	}
	return &Installer{opts: opts}
}

// Ensure makes the version present on disk and returns its install folder.
// Store builds are assumed pre-installed and return an empty path.
func (i *Installer) Ensure(ctx context.Context, v versions.PlayableVersion) (string, error) {
	switch ver := v.(type) {
	case *versions.StoreVersion:
		return "", nil
	case *versions.DevBuildVersion:
		return i.ensureDevBuild(ctx, ver)
	case *versions.ReleaseVersion:
		return i.ensureRelease(ctx, ver)
	default:
		return "", fmt.Errorf("unknown version type %T", v)
	}
}

func (i *Installer) ensureRelease(ctx context.Context, v *versions.ReleaseVersion) (string, error) {
	target := filepath.Join(i.opts.InstallsDir, v.FolderName())
	// An existing release folder is trusted without re-verification, but a
	// leftover manifest means a previous rehydration never finished and
	// must be retried before the folder is usable.
	if dirExists(target) {
		return target, i.rehydrateIfNeeded(ctx, target)
	}

	url, err := v.Download.FirstMirror()
	if err != nil {
		return "", exitcodes.PreconditionError(err.Error())
	}
	localName := v.Download.LocalFileName
	if localName == "" {
		localName = v.FolderName() + ".tar.gz"
	}
	if err := i.downloadAndInstall(ctx, url, v.Download.Hash, localName, target); err != nil {
		return "", err
	}
	return target, i.rehydrateIfNeeded(ctx, target)
}

func (i *Installer) ensureDevBuild(ctx context.Context, v *versions.DevBuildVersion) (string, error) {
	exact, err := v.Exact()
	if err != nil {
		return "", exitcodes.PreconditionError(err.Error())
	}
	target := filepath.Join(i.opts.InstallsDir, v.FolderName())

	if dirExists(target) {
		pinned, err := readPin(filepath.Join(target, PinFileName))
		if err == nil && pinned == exact.ID {
			return target, i.rehydrateIfNeeded(ctx, target)
		}
		// Stale or unreadable pin: the folder holds some other build.
		if err := os.RemoveAll(target); err != nil {
			return "", fmt.Errorf("remove stale devbuild folder: %w", err)
		}
	}

	localName := fmt.Sprintf("devbuild-%d.tar.gz", exact.ID)
	if err := i.downloadAndInstall(ctx, exact.DownloadURL, exact.DownloadHash, localName, target); err != nil {
		return "", err
	}
	if err := writePin(filepath.Join(target, PinFileName), exact.ID); err != nil {
		return "", err
	}
	return target, i.rehydrateIfNeeded(ctx, target)
}

// downloadAndInstall fetches and verifies the archive into a temp dir,
// extracts it, collapses a single top-level entry, and moves the result
// into target. The temp archive is always deleted.
func (i *Installer) downloadAndInstall(ctx context.Context, url, hash, localName, target string) error {
	if url == "" {
		return exitcodes.PreconditionError("version has no download URL")
	}
	if err := os.MkdirAll(i.opts.TempDir, 0o755); err != nil {
		return err
	}
	scratch, err := os.MkdirTemp(i.opts.TempDir, "thrive-install-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	archivePath := filepath.Join(scratch, localName)
	digest, err := i.opts.Downloader.Download(ctx, url, archivePath, download.SHA3256, i.opts.Progress)
	if err != nil {
		return exitcodes.DownloadErr("download archive", err)
	}
	if err := download.CheckHash(archivePath, digest, hash); err != nil {
		return exitcodes.DownloadErr("verify archive", err)
	}

	extracted := filepath.Join(scratch, "extracted")
	if err := os.MkdirAll(extracted, 0o755); err != nil {
		return err
	}
	if i.opts.Extract.Available() {
		err = i.opts.Extract.Extract(ctx, archivePath, extracted)
	} else {
		err = extractArchive(ctx, archivePath, extracted)
	}
	if err != nil {
		return exitcodes.ExtractionErr("unpack archive", err)
	}

	src, err := collapseSingleEntry(extracted)
	if err != nil {
		return exitcodes.ExtractionErr("inspect extracted archive", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("replace existing folder: %w", err)
	}
	if err := os.Rename(src, target); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	return nil
}

func (i *Installer) rehydrateIfNeeded(ctx context.Context, target string) error {
	manifest := filepath.Join(target, rehydrate.ManifestName)
	if _, err := os.Stat(manifest); os.IsNotExist(err) {
		return nil
	}
	if i.opts.Rehydrator == nil {
		return exitcodes.PreconditionError("build is dehydrated but no rehydrator is configured")
	}
	if err := i.opts.Rehydrator.Rehydrate(ctx, manifest); err != nil {
		return exitcodes.RehydrationErr("rehydrate build", err)
	}
	return nil
}

// collapseSingleEntry returns the directory to move into place: the lone
// top-level directory when the archive nested everything one level deep,
// otherwise the extraction root itself.
func collapseSingleEntry(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func readPin(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pin struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &pin); err != nil {
		return 0, err
	}
	return pin.ID, nil
}

func writePin(path string, id int64) error {
	raw, err := json.Marshal(struct {
		ID int64 `json:"id"`
	}{ID: id})
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
