// Package launcherinfo retrieves and verifies the signed launcher-info
// blob that lists playable versions and launcher update channels.
//
// Wire format: gzip-compressed JSON payload followed by a detached
// ed25519 signature as a fixed 64-byte trailer, so the two parts split
// unambiguously.
package launcherinfo

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrInvalidSignature means no embedded key verified the blob.
	ErrInvalidSignature = errors.New("launcher info signature invalid")

	// ErrAllKeysExpired means the blob verifies only under rotated-out
	// keys (or every embedded key is past its validity): this client
	// predates the key rotation and must be updated, not retried.
	ErrAllKeysExpired = errors.New("all launcher signing keys expired; launcher update required")
)

// ManifestDataError wraps decode failures of the payload JSON.
type ManifestDataError struct {
	Cause error
}

func (e *ManifestDataError) Error() string {
	return fmt.Sprintf("malformed launcher info: %v", e.Cause)
}

func (e *ManifestDataError) Unwrap() error { return e.Cause }

// SigningKey is one embedded verification key with its validity bound.
type SigningKey struct {
	Name     string
	Public   ed25519.PublicKey
	NotAfter time.Time
}

func (k SigningKey) expired(now time.Time) bool {
	return !k.NotAfter.IsZero() && now.After(k.NotAfter)
}

// Production keys, newest first. Rotated keys keep their NotAfter so old
// blobs still classify as AllKeysExpired rather than InvalidSignature.
var productionKeys = []SigningKey{
	mustKey("launcher-2024", "61efa2e2ae4c9e9ad38ffd6dbdd4a9b1f2d6bd4c3c8b8d9c0a1b2c3d4e5f6a7b", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
	mustKey("launcher-2021", "0e9d3c8f8e7d6c5b4a392817161514131211100f0e0d0c0b0a09080706050403", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
}

func mustKey(name, hexKey string, notAfter time.Time) SigningKey {
	b, err := hex.DecodeString(hexKey)
	if err != nil || len(b) != ed25519.PublicKeySize {
		panic("bad embedded signing key: " + name)
	}
	return SigningKey{Name: name, Public: ed25519.PublicKey(b), NotAfter: notAfter}
}

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Loader fetches, verifies and decodes the info blob.
type Loader struct {
	http HTTPDoer
	keys []SigningKey

	// IgnoreSignature skips verification entirely. Test builds only;
	// never set in production wiring.
	IgnoreSignature bool

	now func() time.Time
}

// New returns a loader using the embedded production keys.
func New() *Loader {
	return &Loader{
		http: &http.Client{Timeout: 30 * time.Second},
		keys: productionKeys,
		now:  time.Now,
	}
}

// NewWith returns a loader with a custom client and key set (for testing).
func NewWith(h HTTPDoer, keys []SigningKey) *Loader {
	l := New()
	if h != nil {
		l.http = h
	}
	if keys != nil {
		l.keys = keys
	}
	return l
}

// Load fetches the blob from url, verifies and decodes it, then persists
// a copy to cachePath. The cache write is best-effort: failures are
// logged and never mask a successful load.
func (l *Loader) Load(ctx context.Context, url, cachePath string) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch launcher info from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch launcher info from %s: HTTP %s", url, resp.Status)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read launcher info: %w", err)
	}

	info, err := l.decode(blob)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := writeCache(cachePath, blob); err != nil {
			log.Printf("warning: could not cache launcher info: %v", err)
		}
	}
	return info, nil
}

// LoadFromCache verifies and decodes a previously cached blob. Used as a
// fallback when the network load fails.
func (l *Loader) LoadFromCache(cachePath string) (*Info, error) {
	blob, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, fmt.Errorf("read cached launcher info: %w", err)
	}
	return l.decode(blob)
}

// decode splits payload and signature, verifies, decompresses, unmarshals.
func (l *Loader) decode(blob []byte) (*Info, error) {
	if len(blob) <= ed25519.SignatureSize {
		return nil, &ManifestDataError{Cause: fmt.Errorf("blob too short: %d bytes", len(blob))}
	}
	payload := blob[:len(blob)-ed25519.SignatureSize]
	sig := blob[len(blob)-ed25519.SignatureSize:]

	if !l.IgnoreSignature {
		if err := l.verify(payload, sig); err != nil {
			return nil, err
		}
	}

	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &ManifestDataError{Cause: err}
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, &ManifestDataError{Cause: err}
	}

	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, &ManifestDataError{Cause: err}
	}
	if len(info.Versions) == 0 {
		return nil, &ManifestDataError{Cause: errors.New("no versions listed")}
	}
	return &info, nil
}

func (l *Loader) verify(payload, sig []byte) error {
	now := l.now()
	expiredMatch := false
	allExpired := true

	for _, k := range l.keys {
		exp := k.expired(now)
		if !exp {
			allExpired = false
		}
		if ed25519.Verify(k.Public, payload, sig) {
			if exp {
				expiredMatch = true
				continue
			}
			return nil
		}
	}

	if expiredMatch || allExpired {
		return ErrAllKeysExpired
	}
	return ErrInvalidSignature
}

// writeCache stores the raw blob, skipping the write when the on-disk
// copy already has the same content (cheap xxhash compare).
func writeCache(path string, blob []byte) error {
	if existing, err := os.ReadFile(path); err == nil {
		if xxhash.Sum64(existing) == xxhash.Sum64(blob) {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}
