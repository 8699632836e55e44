package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	"github.com/thrivegame/thrive-launcher-cli/internal/installer"
	"github.com/thrivegame/thrive-launcher-cli/internal/runner"
	ui "github.com/thrivegame/thrive-launcher-cli/internal/ui"
	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

type playReport struct {
	Version         string   `json:"version" yaml:"version"`
	Outcome         string   `json:"outcome" yaml:"outcome"`
	ExitCode        int      `json:"exit_code" yaml:"exit_code"`
	Advisory        string   `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	ProperlyStarted bool     `json:"properly_started" yaml:"properly_started"`
	UserQuit        bool     `json:"user_quit" yaml:"user_quit"`
	StartCount      int      `json:"start_count" yaml:"start_count"`
	ElapsedSeconds  float64  `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	PeakRSS         uint64   `json:"peak_rss" yaml:"peak_rss"`
	LogFile         string   `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	CrashDumps      []string `json:"crash_dumps,omitempty" yaml:"crash_dumps,omitempty"`
	OutputTruncated bool     `json:"output_truncated" yaml:"output_truncated"`
}

// handlePlay installs the version when needed, launches the game and
// reports the settled session outcome. The launcher's own exit code stays
// zero for game-side failures; only launcher faults map to an error.
func handlePlay(d *Deps, name string) error {
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

	installDir, err := d.ensureInstalled(ctx, v)
	if err != nil {
		return err
	}
	if installDir == "" {
		installDir = d.Store.InstallPath
		if installDir == "" {
			return exitcodes.PreconditionError("store build location is unknown; set LAUNCHER_STORE_PATH")
		}
	}

	exe := installer.FindExecutable(installDir, runtime.GOOS)
	if !fileExists(exe) {
		return exitcodes.PreconditionErrorf("game executable not found at %s", exe)
	}

	if !flagQuiet {
		d.Printer.Info(fmt.Sprintf("launching %s", v.VersionName()))
	}

	r := runner.New(runner.Options{
		Executable:               exe,
		Settings:                 d.Settings,
		Store:                    d.Store.Store,
		HideLauncher:             d.Settings.HideOnPlay,
		SupportsStartupDetection: v.SupportsStartupDetection(),
	})
	report, err := r.Play(ctx)
	if err != nil {
		return err
	}
	printPlayReport(d, v, report)

	if report.Outcome == runner.OutcomeLauncherFault {
		return exitcodes.ProcessErr("the game could not be started")
	}
	return nil
}

func printPlayReport(d *Deps, v versions.PlayableVersion, report *runner.Report) {
	out := playReport{
		Version:         v.VersionName(),
		Outcome:         report.Outcome.String(),
		ExitCode:        report.ExitCode,
		Advisory:        report.Advisory.String(),
		ProperlyStarted: report.ProperlyStarted,
		UserQuit:        report.UserRequestedQuit,
		StartCount:      report.StartCount,
		ElapsedSeconds:  report.Elapsed.Seconds(),
		PeakRSS:         report.PeakRSS,
		LogFile:         report.LogFile,
		CrashDumps:      report.CrashDumps,
		OutputTruncated: report.OutputTruncated,
	}
	if d.Printer.Structured(out) {
		return
	}

	d.Printer.Section("Session")
	switch report.Outcome {
	case runner.OutcomeCleanExit:
		d.Printer.Success("the game exited normally")
	case runner.OutcomeReportableCrash:
		d.Printer.Error("the game crashed")
	case runner.OutcomeNonReportableExit:
		d.Printer.Warn(fmt.Sprintf("the game exited with code %d", report.ExitCode))
	case runner.OutcomeLauncherFault:
		d.Printer.Error("the game could not be started")
	}
	if report.Advisory != runner.AdvisoryNone {
		d.Printer.Warn(report.Advisory.String())
	}

	d.Printer.KeyValueLine("Play time", report.Elapsed.Round(time.Second).String(), "")
	if report.PeakRSS > 0 {
		d.Printer.KeyValueLine("Peak memory", ui.FormatBytes(int64(report.PeakRSS)), "")
	}
	if report.StartCount > 1 {
		d.Printer.KeyValueLine("Start attempts", fmt.Sprintf("%d", report.StartCount), "yellow")
	}
	if report.LogFile != "" {
		d.Printer.KeyValueLine("Log file", report.LogFile, "dim")
	}
	for _, dump := range report.CrashDumps {
		d.Printer.KeyValueLine("Crash dump", dump, "red")
	}
	if report.ExceptionBlock != "" {
		d.Printer.Section("Unhandled exception")
		d.Printer.Textf("%s\n", report.ExceptionBlock)
	}
	if report.OutputTruncated {
		d.Printer.Info("game output was long and got truncated in the middle")
	}
}
