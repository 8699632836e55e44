package rehydrate

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/thrivegame/thrive-launcher-cli/internal/download"
)

func sha3hex(b []byte) string {
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(b)
	gz.Close()
	return buf.Bytes()
}

// objectServer serves gzip-compressed objects at /obj/<hash> and counts
// download requests.
type objectServer struct {
	srv     *httptest.Server
	objects map[string][]byte // hash -> decompressed content
	hits    atomic.Int64
}

func newObjectServer(t *testing.T) *objectServer {
	t.Helper()
	os := &objectServer{objects: map[string][]byte{}}
	os.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		os.hits.Add(1)
		hash := filepath.Base(r.URL.Path)
		content, ok := os.objects[hash]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(gzipBytes(t, content))
	}))
	t.Cleanup(os.srv.Close)
	return os
}

func (o *objectServer) add(content []byte) string {
	h := sha3hex(content)
	o.objects[h] = content
	return h
}

// recordingResolver maps every requested hash to the object server and
// remembers batch sizes.
type recordingResolver struct {
	base    string
	batches [][]string
}

func (r *recordingResolver) ResolveObjectLinks(ctx context.Context, hashes []string) (map[string]string, error) {
	batch := append([]string(nil), hashes...)
	r.batches = append(r.batches, batch)
	out := make(map[string]string, len(hashes))
	for _, h := range hashes {
		out[h] = r.base + "/obj/" + h
	}
	return out, nil
}

type recordedRepack struct {
	container string
	ops       []RepackOp
}

type fakeRepacker struct {
	calls []recordedRepack
}

func (f *fakeRepacker) Repack(ctx context.Context, containerPath string, ops []RepackOp) error {
	f.calls = append(f.calls, recordedRepack{container: containerPath, ops: ops})
	// Simulate the tool by concatenating the injected objects.
	var buf bytes.Buffer
	for _, op := range ops {
		b, err := os.ReadFile(op.ObjectPath)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return os.WriteFile(containerPath, buf.Bytes(), 0o644)
}

func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func seedCache(t *testing.T, cacheDir string, content []byte) string {
	t.Helper()
	h := sha3hex(content)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, h), content, 0o644); err != nil {
		t.Fatal(err)
	}
	return h
}

func TestRehydrateScenario(t *testing.T) {
	server := newObjectServer(t)
	cacheDir := t.TempDir()
	outDir := t.TempDir()

	// Three single files: two already cached, one missing.
	aContent, bContent, cContent := []byte("object a"), []byte("object b"), []byte("object c")
	aHash := seedCache(t, cacheDir, aContent)
	bHash := seedCache(t, cacheDir, bContent)
	cHash := server.add(cContent)
	// One container with two missing inner objects.
	dContent, eContent := []byte("inner d"), []byte("inner e")
	dHash := server.add(dContent)
	eHash := server.add(eContent)

	manifest := Manifest{
		"a.txt":     {Hash: aHash},
		"sub/b.txt": {Hash: bHash},
		"c.txt":     {Hash: cHash},
		"Thrive.pck": {
			Type: "pck",
			Data: &ContainerData{Files: map[string]InnerEntry{
				"res/d.png": {Hash: dHash},
				"res/e.png": {Hash: eHash},
			}},
		},
	}
	manifestPath := writeManifest(t, outDir, manifest)

	resolver := &recordingResolver{base: server.srv.URL}
	repacker := &fakeRepacker{}
	var lastDone, lastTotal int
	svc, err := New(Options{
		CacheDir: cacheDir,
		Resolver: resolver,
		Repacker: repacker,
		Progress: func(done, total int) { lastDone, lastTotal = done, total },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := svc.Rehydrate(context.Background(), manifestPath); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	if got := server.hits.Load(); got != 3 {
		t.Errorf("downloads = %d, want 3 (only the missing objects)", got)
	}
	if len(resolver.batches) != 1 || len(resolver.batches[0]) != 3 {
		t.Errorf("batches = %v, want one batch of 3", resolver.batches)
	}
	if len(repacker.calls) != 1 {
		t.Fatalf("repack invocations = %d, want 1", len(repacker.calls))
	}
	if got := len(repacker.calls[0].ops); got != 2 {
		t.Errorf("repack ops = %d, want 2", got)
	}
	if got := repacker.calls[0].ops[0].InnerPath; got != "res/d.png" {
		t.Errorf("ops not in sorted inner-path order: first = %q", got)
	}

	for rel, want := range map[string][]byte{
		"a.txt":     aContent,
		"sub/b.txt": bContent,
		"c.txt":     cContent,
	} {
		got, err := os.ReadFile(filepath.Join(outDir, rel))
		if err != nil {
			t.Errorf("missing output %s: %v", rel, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s content = %q, want %q", rel, got, want)
		}
	}
	if _, err := os.Stat(manifestPath); !os.IsNotExist(err) {
		t.Error("manifest should be deleted on success")
	}
	if lastDone != lastTotal || lastTotal != 5 {
		t.Errorf("final progress = %d/%d, want 5/5", lastDone, lastTotal)
	}

	// Second run with the cache fully populated: zero downloads.
	writeManifest(t, outDir, manifest)
	before := server.hits.Load()
	if err := svc.Rehydrate(context.Background(), manifestPath); err != nil {
		t.Fatalf("second Rehydrate: %v", err)
	}
	if got := server.hits.Load(); got != before {
		t.Errorf("second run downloaded %d objects, want 0", got-before)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "c.txt"))
	if err != nil || !bytes.Equal(got, cContent) {
		t.Errorf("second run output differs: %q err=%v", got, err)
	}
}

func TestRehydrateHashGatedAdmission(t *testing.T) {
	server := newObjectServer(t)
	cacheDir := t.TempDir()
	outDir := t.TempDir()

	// Serve wrong bytes under a claimed hash.
	claimed := sha3hex([]byte("the real content"))
	server.objects[claimed] = []byte("tampered bytes")

	manifestPath := writeManifest(t, outDir, Manifest{"f": {Hash: claimed}})

	svc, err := New(Options{
		CacheDir: cacheDir,
		Resolver: &recordingResolver{base: server.srv.URL},
		Repacker: &fakeRepacker{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = svc.Rehydrate(context.Background(), manifestPath)
	var hm *download.HashMismatchError
	if !errors.As(err, &hm) {
		t.Fatalf("expected HashMismatchError, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cacheDir, claimed)); !os.IsNotExist(statErr) {
		t.Error("corrupt object must never appear at its final cache path")
	}
	if _, statErr := os.Stat(manifestPath); statErr != nil {
		t.Error("manifest must survive a failed run")
	}
}

func TestRehydrateSequentialBatches(t *testing.T) {
	server := newObjectServer(t)
	outDir := t.TempDir()

	m := Manifest{}
	for i := 0; i < 5; i++ {
		content := []byte{byte(i), 'x'}
		h := server.add(content)
		m[string(rune('a'+i))+".bin"] = FileEntry{Hash: h}
	}
	manifestPath := writeManifest(t, outDir, m)

	resolver := &recordingResolver{base: server.srv.URL}
	svc, err := New(Options{
		CacheDir:  t.TempDir(),
		BatchSize: 2,
		Lanes:     2,
		Resolver:  resolver,
		Repacker:  &fakeRepacker{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Rehydrate(context.Background(), manifestPath); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	if len(resolver.batches) != 3 {
		t.Fatalf("batches = %d, want 3 for 5 objects at batch size 2", len(resolver.batches))
	}
	for i, sizes := range []int{2, 2, 1} {
		if len(resolver.batches[i]) != sizes {
			t.Errorf("batch %d size = %d, want %d", i, len(resolver.batches[i]), sizes)
		}
	}
}

func TestRehydrateRestoresThriveExecutableBit(t *testing.T) {
	server := newObjectServer(t)
	outDir := t.TempDir()
	h := server.add([]byte("\x7fELF fake game binary"))
	manifestPath := writeManifest(t, outDir, Manifest{"bin/Thrive": {Hash: h}})

	svc, err := New(Options{
		CacheDir: t.TempDir(),
		Resolver: &recordingResolver{base: server.srv.URL},
		Repacker: &fakeRepacker{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Rehydrate(context.Background(), manifestPath); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	info, err := os.Stat(filepath.Join(outDir, "bin", "Thrive"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&0o100 == 0 {
		t.Errorf("Thrive mode = %v, want owner-executable", info.Mode())
	}
}

func TestManifestValidation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"Empty", `{}`},
		{"SingleWithoutHash", `{"a": {}}`},
		{"ContainerWithoutFiles", `{"p": {"type": "pck"}}`},
		{"InnerWithoutHash", `{"p": {"type": "pck", "data": {"files": {"x": {}}}}}`},
		{"NotJSON", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadManifest(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestManifestCounts(t *testing.T) {
	shared := "ffff"
	m := Manifest{
		"a": {Hash: "aaaa"},
		"b": {Hash: shared},
		"p": {Type: "pck", Data: &ContainerData{Files: map[string]InnerEntry{
			"x": {Hash: shared},
			"y": {Hash: "eeee"},
		}}},
	}
	if got := m.UnitCount(); got != 4 {
		t.Errorf("UnitCount = %d, want 4", got)
	}
	hashes := m.Hashes()
	if len(hashes) != 3 {
		t.Errorf("Hashes = %v, want 3 deduplicated entries", hashes)
	}
}
