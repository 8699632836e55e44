package launcherinfo

import (
	"errors"
	"sort"
)

// Info is the decoded launcher-info manifest: every playable release plus
// the launcher's own update channels.
type Info struct {
	Versions        []VersionSpec   `json:"versions"`
	LauncherVersion LauncherUpdates `json:"launcher_version"`
}

// VersionSpec describes one numbered game release.
type VersionSpec struct {
	ReleaseNumber string                     `json:"release_number"`
	Stable        bool                       `json:"stable"`
	Latest        bool                       `json:"latest"`
	Platforms     map[string]DownloadMirrors `json:"platforms"`
}

// DownloadMirrors maps mirror name to URL for one artifact, together with
// its expected content hash and canonical local file name.
type DownloadMirrors struct {
	Mirrors       map[string]string `json:"mirrors"`
	Hash          string            `json:"sha3"`
	LocalFileName string            `json:"local_file_name"`
}

// FirstMirror picks the mirror with the lexically first name so selection
// is deterministic across runs.
func (d DownloadMirrors) FirstMirror() (string, error) {
	if len(d.Mirrors) == 0 {
		return "", errors.New("no download mirrors listed")
	}
	names := make([]string, 0, len(d.Mirrors))
	for name := range d.Mirrors {
		names = append(names, name)
	}
	sort.Strings(names)
	return d.Mirrors[names[0]], nil
}

// LauncherUpdates describes the launcher's self-update channels.
type LauncherUpdates struct {
	LatestVersion string                     `json:"latest_version"`
	Downloads     map[string]DownloadMirrors `json:"auto_update_downloads"`
}

// FindVersion returns the entry for a release number, or nil.
func (i *Info) FindVersion(release string) *VersionSpec {
	for idx := range i.Versions {
		if i.Versions[idx].ReleaseNumber == release {
			return &i.Versions[idx]
		}
	}
	return nil
}

// LatestStable returns the newest stable release per the manifest's Latest
// flag, falling back to the last stable entry.
func (i *Info) LatestStable() *VersionSpec {
	var fallback *VersionSpec
	for idx := range i.Versions {
		v := &i.Versions[idx]
		if !v.Stable {
			continue
		}
		if v.Latest {
			return v
		}
		fallback = v
	}
	return fallback
}
