package main

import (
	"fmt"

	"github.com/thrivegame/thrive-launcher-cli/internal/autoupdate"
	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
)

// handleUpdate checks for a newer launcher and runs the self-update.
// With --check-failed it instead inspects the persisted attempt record
// for a previous update that never landed.
func handleUpdate(d *Deps, checkFailed, retry bool) error {
	driver := autoupdate.New(autoupdate.Options{
		RecordPath:     d.Cfg.UpdateRecordPath(),
		DownloadDir:    d.Cfg.TempDir,
		CurrentVersion: Version,
	})

	if checkFailed {
		return handleCheckFailedUpdate(d, driver, retry)
	}

	ctx, cancel := signalContext()
	defer cancel()

	info, err := d.loadInfo(ctx)
	if err != nil {
		return err
	}
	latest := info.LauncherVersion.LatestVersion
	if !autoupdate.IsNewerVersion(Version, latest) {
		d.Printer.Success(fmt.Sprintf("launcher %s is up to date", Version))
		return nil
	}

	dl, ok := info.LauncherVersion.Downloads[platformKey()]
	if !ok {
		return exitcodes.PreconditionErrorf("no launcher update available for %s", platformKey())
	}
	d.Printer.Info(fmt.Sprintf("updating launcher %s -> %s", Version, latest))

	if err := driver.PerformAutoUpdate(ctx, dl); err != nil {
		return err
	}
	d.Printer.Success("installer started; close the launcher to let it finish")
	return nil
}

func handleCheckFailedUpdate(d *Deps, driver *autoupdate.Driver, retry bool) error {
	failed, rec, err := driver.CheckFailedAutoUpdate()
	if err != nil {
		return err
	}
	if !failed {
		d.Printer.Success("no stuck update attempt found")
		return nil
	}

	d.Printer.Warn(fmt.Sprintf("a previous update from version %s never finished", rec.PreviousLauncherVersion))
	for _, f := range rec.UpdateFiles {
		d.Printer.KeyValueLine("Downloaded installer", f, "dim")
	}
	if !retry {
		d.Printer.Info("run update --check-failed --retry to start the installer again")
		return nil
	}
	if err := driver.RetryPending(rec); err != nil {
		return err
	}
	d.Printer.Success("installer restarted; close the launcher to let it finish")
	return nil
}
