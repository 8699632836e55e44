package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadComputesHash(t *testing.T) {
	body := []byte("the cell stage")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	got, err := New().Download(context.Background(), srv.URL, dest, SHA256, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	sum := sha256.Sum256(body)
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != string(body) {
		t.Errorf("file content = %q, want %q", data, body)
	}
}

func TestDownloadProgressMonotonic(t *testing.T) {
	body := make([]byte, 256*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	var reports []int64
	_, err := New().Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "f"), SHA256,
		func(downloaded, total int64) { reports = append(reports, downloaded) })
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("expected at least one progress report")
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Fatalf("progress went backwards at %d: %d < %d", i, reports[i], reports[i-1])
		}
	}
	if last := reports[len(reports)-1]; last != int64(len(body)) {
		t.Errorf("final progress = %d, want %d", last, len(body))
	}
}

func TestDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New().Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "f"), SHA256, nil)
	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if de.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", de.Status)
	}
}

func TestDownloadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64*1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		cancel()
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := New().Download(ctx, srv.URL, filepath.Join(t.TempDir(), "f"), SHA256, nil)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestDownloadSHA3(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("object bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "obj")
	got, err := New().Download(context.Background(), srv.URL, dest, SHA3256, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	want, err := HashFile(dest, SHA3256)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if got != want {
		t.Errorf("stream hash %s != file hash %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("sha3-256 digest length = %d, want 64 hex chars", len(got))
	}
}

func TestCheckHash(t *testing.T) {
	if err := CheckHash("p", "ABCDEF", "abcdef"); err != nil {
		t.Errorf("case-insensitive match should pass: %v", err)
	}
	err := CheckHash("p", "aaaa", "bbbb")
	var hm *HashMismatchError
	if !errors.As(err, &hm) {
		t.Fatalf("expected HashMismatchError, got %v", err)
	}
	if hm.Expected != "bbbb" || hm.Actual != "aaaa" {
		t.Errorf("mismatch fields wrong: %+v", hm)
	}
}
