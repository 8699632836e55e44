package download

import (
	"fmt"
	"strings"
)

// DownloadError is a transport or local I/O failure during a download.
type DownloadError struct {
	URL    string
	Status int // non-zero when the server answered with a bad status
	Cause  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Cause)
}

func (e *DownloadError) Unwrap() error { return e.Cause }

// HashMismatchError indicates a downloaded artifact did not hash to its
// claimed identity. The artifact must not be trusted or kept.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// CheckHash compares a computed digest against the expected one,
// case-insensitively, returning a HashMismatchError on disagreement.
func CheckHash(path, actual, expected string) error {
	if !strings.EqualFold(actual, expected) {
		return &HashMismatchError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}
