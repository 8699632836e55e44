package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nxadm/tail"

	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
)

// handleLogs prints the tail of the game's log file, optionally following
// it as the game writes more.
func handleLogs(d *Deps, file string, follow bool, lines int) error {
	if file == "" {
		file = defaultLogFile()
	}
	if !fileExists(file) {
		return exitcodes.PreconditionErrorf("log file %s does not exist; has the game run yet?", file)
	}

	if !follow {
		return printLastLines(d.Out, file, lines)
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := tail.TailFile(file, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(d.Out, line.Text)
		}
	}
}

// defaultLogFile is where the game writes its log when no location was
// learned from a play session.
func defaultLogFile() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Thrive", "logs", "log.txt")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Thrive", "logs", "log.txt")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "Thrive", "logs", "log.txt")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "Thrive", "logs", "log.txt")
	}
}

func printLastLines(out io.Writer, path string, n int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}
