package rehydrate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ManifestName is the conventional manifest file name inside an installed
// folder. Its presence means the build still needs rehydration.
const ManifestName = "dehydrated.json"

// Manifest maps relative output paths to their dehydrated file entries.
type Manifest map[string]FileEntry

// FileEntry is one dehydrated file: either a single content object or a
// pck container rebuilt from many inner objects.
type FileEntry struct {
	Type string         `json:"type,omitempty"`
	Hash string         `json:"sha3,omitempty"`
	Data *ContainerData `json:"data,omitempty"`
}

// ContainerData lists a container's inner files keyed by inner path.
type ContainerData struct {
	Files map[string]InnerEntry `json:"files"`
}

// InnerEntry identifies one file packed inside a container.
type InnerEntry struct {
	Hash string `json:"sha3"`
}

// IsContainer reports whether the entry is rebuilt by the repack tool.
func (e FileEntry) IsContainer() bool { return e.Type == "pck" }

// LoadManifest reads and validates a dehydrate manifest file.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dehydrate manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse dehydrate manifest %s: %w", path, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("dehydrate manifest %s lists no files", path)
	}
	for p, e := range m {
		if e.IsContainer() {
			if e.Data == nil || len(e.Data.Files) == 0 {
				return nil, fmt.Errorf("container entry %s has no inner files", p)
			}
			for inner, ie := range e.Data.Files {
				if ie.Hash == "" {
					return nil, fmt.Errorf("inner file %s of %s has no hash", inner, p)
				}
			}
		} else if e.Hash == "" {
			return nil, fmt.Errorf("file entry %s has no hash", p)
		}
	}
	return m, nil
}

// UnitCount is the progress denominator: single files plus every container
// inner file.
func (m Manifest) UnitCount() int {
	n := 0
	for _, e := range m {
		if e.IsContainer() {
			n += len(e.Data.Files)
		} else {
			n++
		}
	}
	return n
}

// Hashes returns every referenced content hash, deduplicated and sorted.
func (m Manifest) Hashes() []string {
	seen := map[string]struct{}{}
	for _, e := range m {
		if e.IsContainer() {
			for _, ie := range e.Data.Files {
				seen[ie.Hash] = struct{}{}
			}
		} else {
			seen[e.Hash] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// sortedPaths gives a deterministic reconstruction order.
func (m Manifest) sortedPaths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
