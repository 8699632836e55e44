// Package rehydrate reconstructs dehydrated builds from a shared
// content-addressed object cache, downloading missing objects in bounded
// parallel lanes and repacking container files through an external tool.
package rehydrate

import (
	"compress/gzip"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"

	"github.com/thrivegame/thrive-launcher-cli/internal/download"
)

// Default concurrency constants. BatchSize matches the link-resolve API
// cap; Lanes bounds simultaneous object downloads within one batch.
const (
	DefaultBatchSize = 100
	DefaultLanes     = 4
)

// LinkResolver resolves a batch of content hashes into download URLs.
type LinkResolver interface {
	ResolveObjectLinks(ctx context.Context, hashes []string) (map[string]string, error)
}

// RepackOp is one injection into a container: put the cached object's
// bytes at InnerPath inside the container file.
type RepackOp struct {
	ObjectPath string
	InnerPath  string
}

// Repacker rebuilds one container file from cached objects.
type Repacker interface {
	Repack(ctx context.Context, containerPath string, ops []RepackOp) error
}

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// ProgressFunc receives (completed units, total units).
type ProgressFunc func(done, total int)

// Options configures a rehydration service.
type Options struct {
	CacheDir  string
	BatchSize int
	Lanes     int
	Resolver  LinkResolver
	Repacker  Repacker
	Progress  ProgressFunc
}

// Service performs rehydration runs.
type Service struct {
	opts  Options
	cache *ObjectCache
	http  HTTPDoer
}

// New creates a rehydration service.
func New(opts Options) (*Service, error) {
	return NewWith(opts, nil)
}

// NewWith creates a service with a custom HTTP client (for testing).
func NewWith(opts Options, h HTTPDoer) (*Service, error) {
	if opts.Resolver == nil || opts.Repacker == nil {
		return nil, fmt.Errorf("rehydrate: resolver and repacker are required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Lanes <= 0 {
		opts.Lanes = DefaultLanes
	}
	cache, err := NewCache(opts.CacheDir)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Service{opts: opts, cache: cache, http: h}, nil
}

// Rehydrate reconstructs the folder described by the manifest at
// manifestPath and deletes the manifest on full success. Safe to re-run
// after a failure: verified objects stay cached.
func (s *Service) Rehydrate(ctx context.Context, manifestPath string) error {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	outDir := filepath.Dir(manifestPath)
	total := m.UnitCount()

	var missing []string
	for _, h := range m.Hashes() {
		if !s.cache.Has(h) {
			missing = append(missing, h)
		}
	}

	if err := s.downloadMissing(ctx, missing); err != nil {
		return err
	}

	done := 0
	report := func(n int) {
		done += n
		if s.opts.Progress != nil {
			s.opts.Progress(done, total)
		}
	}

	for _, relPath := range m.sortedPaths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := m[relPath]
		outPath := filepath.Join(outDir, relPath)
		if entry.IsContainer() {
			if err := s.rebuildContainer(ctx, outPath, entry); err != nil {
				return err
			}
			report(len(entry.Data.Files))
		} else {
			if err := s.placeSingle(outPath, entry.Hash); err != nil {
				return err
			}
			report(1)
		}
	}

	if err := os.Remove(manifestPath); err != nil {
		return fmt.Errorf("remove dehydrate manifest: %w", err)
	}
	return nil
}

// downloadMissing fetches objects in sequential link-resolve batches, each
// batch's downloads spread over parallel lanes. A batch must fully land
// before the next batch's API call is made.
func (s *Service) downloadMissing(ctx context.Context, missing []string) error {
	for start := 0; start < len(missing); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(missing) {
			end = len(missing)
		}
		chunk := missing[start:end]

		links, err := s.opts.Resolver.ResolveObjectLinks(ctx, chunk)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Lanes)
		for _, hash := range chunk {
			hash := hash
			g.Go(func() error {
				return s.fetchObject(gctx, links[hash], hash)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// fetchObject downloads one object, gunzips it while hashing the
// decompressed bytes, and admits it to the cache only on a hash match.
func (s *Service) fetchObject(ctx context.Context, url, hash string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return &download.DownloadError{URL: url, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &download.DownloadError{
			URL:    url,
			Status: resp.StatusCode,
			Cause:  fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("object %s is not gzip: %w", hash, err)
	}
	defer gz.Close()

	tmp, err := s.cache.TempFile(hash)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	hasher := sha3.New256()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), gz); err != nil {
		tmp.Close()
		return &download.DownloadError{URL: url, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if err := download.CheckHash(tmp.Name(), actual, hash); err != nil {
		return err
	}
	return s.cache.Admit(tmp.Name(), hash)
}

// placeSingle copies a cached object to its output path. A file named
// exactly "Thrive" gets its executable bit restored on non-Windows.
func (s *Service) placeSingle(outPath, hash string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	src, err := os.Open(s.cache.Path(hash))
	if err != nil {
		return fmt.Errorf("open cached object %s: %w", hash, err)
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := dst.Close(); err != nil {
		return err
	}

	if runtime.GOOS != "windows" && filepath.Base(outPath) == "Thrive" {
		if err := os.Chmod(outPath, 0o755); err != nil {
			return fmt.Errorf("restore executable bit on %s: %w", outPath, err)
		}
	}
	return nil
}

// rebuildContainer invokes the repack tool once with every inner file of
// the container, in sorted inner-path order.
func (s *Service) rebuildContainer(ctx context.Context, outPath string, entry FileEntry) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	ops := make([]RepackOp, 0, len(entry.Data.Files))
	inner := make([]string, 0, len(entry.Data.Files))
	for p := range entry.Data.Files {
		inner = append(inner, p)
	}
	sort.Strings(inner)
	for _, p := range inner {
		ops = append(ops, RepackOp{
			ObjectPath: s.cache.Path(entry.Data.Files[p].Hash),
			InnerPath:  p,
		})
	}
	return s.opts.Repacker.Repack(ctx, outPath, ops)
}
