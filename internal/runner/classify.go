package runner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Output markers the game emits. The literals must match the game exactly.
const (
	startupSuccessMarker = "------------ Game Startup Succeeded ------------"
	exceptionStartMarker = ">>> Unhandled exception logging start"
	exceptionEndMarker   = ">>> Unhandled exception logging end"
	userQuitMarker       = "User requested program exit"
	launcherReopenMarker = "Launcher would be opened now"
)

var (
	logsLocationRegex = regexp.MustCompile(`(?im)logs are written to:\s*(\S+).*?log[:\s]+(\S+)`)
	crashDumpRegex    = regexp.MustCompile(`(?i)crash dump created at:\s*(\S+\.dmp)`)
)

// benignStderrPrefixes are vendor SDK banners that land on stderr but are
// not error output.
var benignStderrPrefixes = []string{
	"ALSA lib",
	"XDG_",
	"Vulkan:",
	"Godot Engine",
}

func isBenignStderr(line string) bool {
	for _, p := range benignStderrPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// parseLogsLocation extracts (logFolder, logFile) from a log-location
// announcement, or ok=false.
func parseLogsLocation(line string) (folder, file string, ok bool) {
	m := logsLocationRegex.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], filepath.Join(m[1], m[2]), true
}

// scanCrashDumps re-scans the retained output for crash dump paths and
// keeps only those that exist on disk. Mentioned-but-missing paths are
// returned separately so the caller can log them as suspicious.
func scanCrashDumps(lines []string) (existing, missing []string) {
	for _, line := range lines {
		for _, m := range crashDumpRegex.FindAllStringSubmatch(line, -1) {
			path := m[1]
			if _, err := os.Stat(path); err == nil {
				existing = append(existing, path)
			} else {
				missing = append(missing, path)
			}
		}
	}
	return existing, missing
}
