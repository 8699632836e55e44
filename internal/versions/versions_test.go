package versions

import (
	"context"
	"errors"
	"testing"

	"github.com/thrivegame/thrive-launcher-cli/internal/launcherinfo"
)

func TestSortPolicy(t *testing.T) {
	list := []PlayableVersion{
		&ReleaseVersion{Release: "0.9.0"},
		&ReleaseVersion{Release: "not-a-version"},
		&DevBuildVersion{Channel: LatestBuild},
		&ReleaseVersion{Release: "1.10.0"},
		&StoreVersion{Store: "steam"},
		&ReleaseVersion{Release: "1.2.0"},
		&DevBuildVersion{Channel: BuildOfTheDay},
	}
	Sort(list)

	want := []string{
		"store (steam)",
		"devbuild (botd)",
		"devbuild (latest)",
		"1.10.0",
		"1.2.0",
		"0.9.0",
		"not-a-version",
	}
	for i, w := range want {
		if got := list[i].VersionName(); got != w {
			t.Errorf("position %d = %q, want %q", i, got, w)
		}
	}
}

func TestCompareReleases(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"NumericNotLexical", "1.10.0", "1.9.0", 1},
		{"Equal", "1.2.0", "1.2.0", 0},
		{"InvalidSortsLowest", "garbage", "0.0.1", -1},
		{"BothInvalid", "x", "y", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareReleases(tt.a, tt.b); got != tt.want {
				t.Errorf("compareReleases(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestReleaseFolderName(t *testing.T) {
	tests := []struct {
		name  string
		local string
		want  string
	}{
		{"TarGz", "Thrive-1.2.0-linux.tar.gz", "Thrive-1.2.0-linux"},
		{"TarLz4", "Thrive-1.2.0-linux.tar.lz4", "Thrive-1.2.0-linux"},
		{"Zip", "Thrive-1.2.0-win.zip", "Thrive-1.2.0-win"},
		{"NoExtension", "Thrive-1.2.0", "Thrive-1.2.0"},
		{"Empty", "", "Thrive-1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ReleaseVersion{
				Release:  "1.2.0",
				Download: launcherinfo.DownloadMirrors{LocalFileName: tt.local},
			}
			if got := r.FolderName(); got != tt.want {
				t.Errorf("FolderName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartupDetectionCutoff(t *testing.T) {
	old := &ReleaseVersion{Release: "0.5.4"}
	if old.SupportsStartupDetection() {
		t.Error("0.5.4 should not support startup detection")
	}
	for _, rel := range []string{"0.5.5", "1.0.0"} {
		r := &ReleaseVersion{Release: rel}
		if !r.SupportsStartupDetection() {
			t.Errorf("%s should support startup detection", rel)
		}
	}
}

type fakeResolver struct {
	calls int
	build *ExactBuild
	err   error
}

func (f *fakeResolver) ResolveBuild(ctx context.Context, ch BuildChannel, id int64) (*ExactBuild, error) {
	f.calls++
	return f.build, f.err
}

func TestDevBuildResolveOnce(t *testing.T) {
	r := &fakeResolver{build: &ExactBuild{ID: 42, DownloadHash: "abc", Verified: true}}
	d := &DevBuildVersion{Channel: BuildOfTheDay}

	if _, err := d.Exact(); !errors.Is(err, ErrBuildUnresolved) {
		t.Fatalf("expected ErrBuildUnresolved before resolve, got %v", err)
	}
	if d.FolderName() != "" {
		t.Error("folder name should be empty before resolve")
	}

	for i := 0; i < 3; i++ {
		if err := d.Resolve(context.Background(), r); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if r.calls != 1 {
		t.Errorf("resolver called %d times, want 1", r.calls)
	}

	exact, err := d.Exact()
	if err != nil {
		t.Fatalf("Exact: %v", err)
	}
	if exact.ID != 42 {
		t.Errorf("ID = %d, want 42", exact.ID)
	}
	if d.FolderName() != "devbuild" {
		t.Errorf("FolderName() = %q after resolve", d.FolderName())
	}
}

func TestDevBuildResolveError(t *testing.T) {
	r := &fakeResolver{err: errors.New("devcenter unreachable")}
	d := &DevBuildVersion{Channel: LatestBuild}
	if err := d.Resolve(context.Background(), r); err == nil {
		t.Fatal("expected resolve error")
	}
	if _, err := d.Exact(); !errors.Is(err, ErrBuildUnresolved) {
		t.Error("failed resolve must not mark the build resolved")
	}
}

func TestFromManifest(t *testing.T) {
	info := &launcherinfo.Info{Versions: []launcherinfo.VersionSpec{
		{
			ReleaseNumber: "1.0.0",
			Stable:        true,
			Platforms: map[string]launcherinfo.DownloadMirrors{
				"linux": {LocalFileName: "Thrive-1.0.0-linux.tar.gz"},
			},
		},
		{
			ReleaseNumber: "1.1.0",
			Platforms: map[string]launcherinfo.DownloadMirrors{
				"windows": {LocalFileName: "Thrive-1.1.0-win.zip"},
			},
		},
	}}

	list := FromManifest(info, "linux", "steam")

	// Store first, two devbuild channels, then only the linux release.
	if len(list) != 4 {
		t.Fatalf("got %d versions, want 4: %v", len(list), list)
	}
	if _, ok := list[0].(*StoreVersion); !ok {
		t.Errorf("first entry should be the store version, got %T", list[0])
	}
	last, ok := list[3].(*ReleaseVersion)
	if !ok || last.Release != "1.0.0" {
		t.Errorf("last entry = %#v, want release 1.0.0", list[3])
	}

	noStore := FromManifest(info, "linux", "")
	if len(noStore) != 3 {
		t.Errorf("without store: got %d versions, want 3", len(noStore))
	}
}
