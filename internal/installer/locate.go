package installer

import (
	"os"
	"path/filepath"
	"strings"
)

// ExecutableName is the game binary's file name on the given platform.
func ExecutableName(goos string) string {
	if goos == "windows" {
		return "Thrive.exe"
	}
	return "Thrive"
}

// FindExecutable locates the game binary inside an installed folder.
// Preference order: a recursively discovered bin folder, the folder root
// itself, the mac bundle path, then a best-effort guess at the last
// folder the search visited.
func FindExecutable(installDir, goos string) string {
	exe := ExecutableName(goos)

	lastVisited := installDir
	if bin := findBinFolder(installDir, &lastVisited); bin != "" {
		return filepath.Join(bin, exe)
	}
	if direct := filepath.Join(installDir, exe); fileExists(direct) {
		return direct
	}
	if goos == "darwin" {
		bundled := filepath.Join(installDir, "Thrive.app", "Contents", "MacOS", "Thrive")
		if fileExists(bundled) {
			return bundled
		}
	}
	return filepath.Join(lastVisited, exe)
}

// findBinFolder walks the tree depth-first for a folder named "bin",
// skipping tooling folders that carry their own unrelated bin dirs.
func findBinFolder(dir string, lastVisited *string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, "Mono") ||
			strings.Contains(name, ".asar") ||
			strings.Contains(name, "node_modules") {
			continue
		}
		sub := filepath.Join(dir, name)
		*lastVisited = sub
		if name == "bin" {
			return sub
		}
		if found := findBinFolder(sub, lastVisited); found != "" {
			return found
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
