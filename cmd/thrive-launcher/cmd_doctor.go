package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	ui "github.com/thrivegame/thrive-launcher-cli/internal/ui"
)

// minFreeSpace is the free disk space below which installs are likely to
// fail mid-way.
const minFreeSpace = 2 * 1024 * 1024 * 1024

type doctorCheck struct {
	Name   string `json:"name" yaml:"name"`
	OK     bool   `json:"ok" yaml:"ok"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// handleDoctor runs local environment checks: writable home, disk space,
// external tools and launcher-info reachability.
func handleDoctor(d *Deps, strict bool) error {
	checks := []doctorCheck{
		checkHomeWritable(d.Cfg.HomeDir),
		checkDiskSpace(d.Cfg.HomeDir),
		checkTool("pck tool", d.Cfg.PckTool, "dehydrated builds cannot be rehydrated without it"),
		checkTool("extract tool", d.Cfg.ExtractTool, "the built-in extractor will be used"),
		checkInfoReachable(d),
	}

	if d.Printer.Structured(checks) {
		return nil
	}

	d.Printer.Header("Launcher checkup")
	problems := 0
	for _, c := range checks {
		status := "success"
		if !c.OK {
			status = "warning"
			problems++
		}
		line := c.Name
		if c.Detail != "" {
			line += ": " + c.Detail
		}
		d.Printer.Textf("  %s %s\n", d.Printer.Colors.StatusIcon(status), line)
	}

	if problems == 0 {
		d.Printer.Success("everything looks good")
		return nil
	}
	d.Printer.Warn(fmt.Sprintf("%d check(s) need attention", problems))
	if strict {
		return exitcodes.ValidationErr("environment has issues")
	}
	return nil
}

func checkHomeWritable(home string) doctorCheck {
	c := doctorCheck{Name: "home directory writable"}
	if err := os.MkdirAll(home, 0o755); err != nil {
		c.Detail = err.Error()
		return c
	}
	probe, err := os.CreateTemp(home, "doctor-*")
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	probe.Close()
	os.Remove(probe.Name())
	c.OK = true
	c.Detail = home
	return c
}

func checkDiskSpace(home string) doctorCheck {
	c := doctorCheck{Name: "free disk space"}
	usage, err := disk.Usage(filepath.Dir(home))
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	c.Detail = ui.FormatBytes(int64(usage.Free)) + " free"
	c.OK = usage.Free >= minFreeSpace
	if !c.OK {
		c.Detail += fmt.Sprintf(" (installs need at least %s)", ui.FormatBytes(minFreeSpace))
	}
	return c
}

func checkTool(name, tool, consequence string) doctorCheck {
	c := doctorCheck{Name: name}
	if tool == "" {
		c.Detail = "not configured; " + consequence
		return c
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		c.Detail = tool + " not found in PATH; " + consequence
		return c
	}
	c.OK = true
	c.Detail = path
	return c
}

func checkInfoReachable(d *Deps) doctorCheck {
	c := doctorCheck{Name: "launcher info reachable"}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := d.Loader.Load(ctx, d.Cfg.InfoURL, ""); err != nil {
		c.Detail = err.Error()
		return c
	}
	c.OK = true
	c.Detail = d.Cfg.InfoURL
	return c
}
