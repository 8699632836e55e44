package launcherinfo

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testSigner struct {
	key  SigningKey
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T, name string, notAfter time.Time) testSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return testSigner{key: SigningKey{Name: name, Public: pub, NotAfter: notAfter}, priv: priv}
}

func testInfo() Info {
	return Info{
		Versions: []VersionSpec{
			{
				ReleaseNumber: "1.2.0",
				Stable:        true,
				Latest:        true,
				Platforms: map[string]DownloadMirrors{
					"linux": {
						Mirrors:       map[string]string{"main": "https://dl.example.com/1.2.0.tar.gz"},
						Hash:          "deadbeef",
						LocalFileName: "thrive-1.2.0.tar.gz",
					},
				},
			},
		},
		LauncherVersion: LauncherUpdates{LatestVersion: "2.0.0"},
	}
}

func makeBlob(t *testing.T, info Info, priv ed25519.PrivateKey) []byte {
	t.Helper()
	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(raw)
	gz.Close()
	payload := buf.Bytes()
	sig := ed25519.Sign(priv, payload)
	return append(payload, sig...)
}

func TestLoadVerifiesAndCaches(t *testing.T) {
	signer := newTestSigner(t, "test", time.Now().Add(24*time.Hour))
	blob := makeBlob(t, testInfo(), signer.priv)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(blob)
	}))
	defer srv.Close()

	cache := filepath.Join(t.TempDir(), "launcher_info.bin")
	l := NewWith(nil, []SigningKey{signer.key})

	info, err := l.Load(context.Background(), srv.URL, cache)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Versions[0].ReleaseNumber != "1.2.0" {
		t.Errorf("decoded version = %q", info.Versions[0].ReleaseNumber)
	}

	// Cache must hold the verbatim blob and be loadable via the same path.
	cached, err := os.ReadFile(cache)
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if !bytes.Equal(cached, blob) {
		t.Error("cache content differs from blob")
	}
	fromCache, err := l.LoadFromCache(cache)
	if err != nil {
		t.Fatalf("LoadFromCache: %v", err)
	}
	if fromCache.LauncherVersion.LatestVersion != "2.0.0" {
		t.Errorf("cache decode: %+v", fromCache.LauncherVersion)
	}
}

func TestLoadRejectsForeignSignature(t *testing.T) {
	signer := newTestSigner(t, "trusted", time.Now().Add(time.Hour))
	attacker := newTestSigner(t, "attacker", time.Now().Add(time.Hour))
	blob := makeBlob(t, testInfo(), attacker.priv)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(blob)
	}))
	defer srv.Close()

	l := NewWith(nil, []SigningKey{signer.key})
	_, err := l.Load(context.Background(), srv.URL, "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestLoadExpiredKeyIsDistinguishable(t *testing.T) {
	// Blob signed with a key the client knows but whose validity passed:
	// the client predates rotation and must demand an update.
	expired := newTestSigner(t, "old", time.Now().Add(-time.Hour))
	blob := makeBlob(t, testInfo(), expired.priv)

	l := NewWith(nil, []SigningKey{expired.key})
	_, err := l.decode(blob)
	if !errors.Is(err, ErrAllKeysExpired) {
		t.Fatalf("expected ErrAllKeysExpired, got %v", err)
	}
}

func TestLoadExpiredKeyWithCurrentKeyPresent(t *testing.T) {
	expired := newTestSigner(t, "old", time.Now().Add(-time.Hour))
	current := newTestSigner(t, "new", time.Now().Add(time.Hour))
	blob := makeBlob(t, testInfo(), expired.priv)

	// Signature only verifies under the expired key even though a live
	// key exists: still AllKeysExpired, not a generic invalid signature.
	l := NewWith(nil, []SigningKey{current.key, expired.key})
	_, err := l.decode(blob)
	if !errors.Is(err, ErrAllKeysExpired) {
		t.Fatalf("expected ErrAllKeysExpired, got %v", err)
	}
}

func TestIgnoreSignatureMode(t *testing.T) {
	attacker := newTestSigner(t, "attacker", time.Now().Add(time.Hour))
	trusted := newTestSigner(t, "trusted", time.Now().Add(time.Hour))
	blob := makeBlob(t, testInfo(), attacker.priv)

	l := NewWith(nil, []SigningKey{trusted.key})
	l.IgnoreSignature = true
	if _, err := l.decode(blob); err != nil {
		t.Fatalf("ignore-signature decode: %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	signer := newTestSigner(t, "test", time.Now().Add(time.Hour))
	l := NewWith(nil, []SigningKey{signer.key})

	t.Run("TooShort", func(t *testing.T) {
		var mde *ManifestDataError
		if _, err := l.decode([]byte("short")); !errors.As(err, &mde) {
			t.Errorf("expected ManifestDataError, got %v", err)
		}
	})

	t.Run("NotGzip", func(t *testing.T) {
		payload := []byte("this is not gzip data, but it is long enough to carry a trailer")
		sig := ed25519.Sign(signer.priv, payload)
		var mde *ManifestDataError
		if _, err := l.decode(append(payload, sig...)); !errors.As(err, &mde) {
			t.Errorf("expected ManifestDataError, got %v", err)
		}
	})

	t.Run("EmptyVersionList", func(t *testing.T) {
		blob := makeBlob(t, Info{LauncherVersion: LauncherUpdates{LatestVersion: "2.0.0"}}, signer.priv)
		var mde *ManifestDataError
		if _, err := l.decode(blob); !errors.As(err, &mde) {
			t.Errorf("expected ManifestDataError, got %v", err)
		}
	})
}

func TestCacheWriteSkippedWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.bin")
	blob := []byte("same bytes")
	if err := writeCache(path, blob); err != nil {
		t.Fatalf("writeCache: %v", err)
	}
	before, _ := os.Stat(path)

	time.Sleep(10 * time.Millisecond)
	if err := writeCache(path, blob); err != nil {
		t.Fatalf("writeCache second: %v", err)
	}
	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("unchanged blob should not rewrite the cache file")
	}
}

func TestFindVersionAndLatestStable(t *testing.T) {
	info := Info{Versions: []VersionSpec{
		{ReleaseNumber: "0.9.0", Stable: true},
		{ReleaseNumber: "1.0.0", Stable: true, Latest: true},
		{ReleaseNumber: "1.1.0-rc1", Stable: false},
	}}

	if v := info.FindVersion("0.9.0"); v == nil || v.ReleaseNumber != "0.9.0" {
		t.Errorf("FindVersion(0.9.0) = %+v", v)
	}
	if v := info.FindVersion("2.0.0"); v != nil {
		t.Errorf("FindVersion(2.0.0) should be nil, got %+v", v)
	}
	if v := info.LatestStable(); v == nil || v.ReleaseNumber != "1.0.0" {
		t.Errorf("LatestStable() = %+v", v)
	}
}
