// Package download provides the hashing downloader shared by version
// installs, rehydration and launcher self-update: it streams a URL to a
// local file while computing the content hash and reporting byte progress.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/sha3"
)

// Algorithm selects the content hash computed while streaming.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	SHA3256 Algorithm = "sha3-256"
)

func newHash(a Algorithm) (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA3256:
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %q", a)
	}
}

// ProgressFunc receives monotonically increasing downloaded byte counts.
// total is -1 when the server does not report a content length.
type ProgressFunc func(downloaded, total int64)

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Downloader streams URLs to disk with incremental hashing.
type Downloader struct {
	http HTTPDoer
}

// New creates a downloader with a client tuned for large transfers:
// no overall timeout, but bounded header/idle waits.
func New() *Downloader {
	return &Downloader{
		http: &http.Client{
			Timeout: 0,
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// NewWith creates a downloader with a custom HTTP client (for testing).
func NewWith(h HTTPDoer) *Downloader {
	if h == nil {
		return New()
	}
	return &Downloader{http: h}
}

// Download streams url to destPath, returning the hex digest of the body.
// The partial file is left in place on failure; callers own cleanup.
// Cancellation surfaces as a DownloadError wrapping ctx.Err().
func (d *Downloader) Download(ctx context.Context, url, destPath string, algo Algorithm, progress ProgressFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &DownloadError{URL: url, Cause: err}
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return "", &DownloadError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{URL: url, Status: resp.StatusCode, Cause: fmt.Errorf("HTTP %s", resp.Status)}
	}

	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return "", &DownloadError{URL: url, Cause: err}
	}

	var reader io.Reader = resp.Body
	if progress != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			progress: progress,
		}
	}

	_, err = io.Copy(io.MultiWriter(out, h), reader)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", &DownloadError{URL: url, Cause: err}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile computes the hex digest of an existing file.
func HashFile(path string, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// progressReader wraps a reader to report download progress. Progress is
// only emitted for reads that moved bytes, so nothing fires after EOF.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	progress   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.progress(pr.downloaded, pr.total)
	}
	return n, err
}
