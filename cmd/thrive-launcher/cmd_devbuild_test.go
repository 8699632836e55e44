package main

import (
	"testing"

	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

func TestDevBuildFor(t *testing.T) {
	tests := []struct {
		name        string
		selection   string
		wantChannel versions.BuildChannel
		wantID      int64
		wantErr     bool
	}{
		{"BuildOfTheDay", "botd", versions.BuildOfTheDay, 0, false},
		{"Latest", "latest", versions.LatestBuild, 0, false},
		{"ManualID", "1234", versions.ManuallySelected, 1234, false},
		{"NotANumber", "newest", 0, 0, true},
		{"NegativeID", "-5", 0, 0, true},
		{"Zero", "0", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := devBuildFor(tt.selection)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("devBuildFor(%q) expected error", tt.selection)
				}
				return
			}
			if err != nil {
				t.Fatalf("devBuildFor(%q): %v", tt.selection, err)
			}
			if v.Channel != tt.wantChannel {
				t.Errorf("channel = %v, want %v", v.Channel, tt.wantChannel)
			}
			if v.ManualID != tt.wantID {
				t.Errorf("manual id = %d, want %d", v.ManualID, tt.wantID)
			}
		})
	}
}
