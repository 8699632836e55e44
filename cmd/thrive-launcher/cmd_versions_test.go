package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHandleVersionsListsManifest(t *testing.T) {
	srv := serveInfo(t, testInfo())
	d := testDeps(t, srv.URL)

	// Pre-create one install folder so it reports as installed.
	installed := filepath.Join(d.Cfg.InstallsDir, "Thrive-0.9.0")
	if err := os.MkdirAll(installed, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := handleVersions(d); err != nil {
		t.Fatalf("handleVersions: %v", err)
	}

	// The verified blob should have been cached for offline fallback.
	if _, err := os.Stat(d.Cfg.InfoCachePath()); err != nil {
		t.Errorf("info cache not written: %v", err)
	}
}

func TestVersionRowInstalledDetection(t *testing.T) {
	d := testDeps(t, "")
	info := testInfo()

	v, err := d.selectVersion(&info, "0.9.0")
	if err != nil {
		t.Fatal(err)
	}
	folder := d.installFolderOf(v)
	if folder == "" {
		t.Fatal("release version must have an install folder")
	}
	if dirExists(folder) {
		t.Error("folder should not exist yet")
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if !dirExists(folder) {
		t.Error("folder should now report installed")
	}
}
