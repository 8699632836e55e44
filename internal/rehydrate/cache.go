package rehydrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// ObjectCache is the shared content-addressed object store. An object is
// only ever visible at its final path after its hash was verified, so a
// present path is taken as proof of validity.
type ObjectCache struct {
	dir string
}

// NewCache opens (creating if needed) the object cache directory.
func NewCache(dir string) (*ObjectCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create object cache: %w", err)
	}
	return &ObjectCache{dir: dir}, nil
}

// Path is the final location of an object.
func (c *ObjectCache) Path(hash string) string {
	return filepath.Join(c.dir, hash)
}

// Has reports whether an object is already cached.
func (c *ObjectCache) Has(hash string) bool {
	_, err := os.Stat(c.Path(hash))
	return err == nil
}

// TempFile creates a per-object scratch file in the cache directory so the
// later rename never crosses filesystems.
func (c *ObjectCache) TempFile(hash string) (*os.File, error) {
	return os.CreateTemp(c.dir, hash+".part-*")
}

// Admit moves a fully verified temp file into the object's final slot.
// Losing a race to another lane is fine: the winner wrote identical bytes.
func (c *ObjectCache) Admit(tempPath, hash string) error {
	final := c.Path(hash)
	if _, err := os.Stat(final); err == nil {
		return os.Remove(tempPath)
	}
	if err := os.Rename(tempPath, final); err != nil {
		return fmt.Errorf("admit object %s: %w", hash, err)
	}
	return nil
}
