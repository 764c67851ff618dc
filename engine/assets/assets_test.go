package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want AssetType
	}{
		{"assets/shaders/phong.ksh", AssetTypeShader},
		{"textures/brick.PNG", AssetTypeImage},
		{"textures/brick.jpeg", AssetTypeImage},
		{"textures/sky.webp", AssetTypeImage},
		{"textures/sky.tiff", AssetTypeImage},
		{"models/viking_room.obj", AssetTypeModel},
		{"models/viking_room.mtl", AssetTypeNone},
		{"README", AssetTypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetermineAssetType(tt.path); got != tt.want {
				t.Errorf("DetermineAssetType(%q) = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatchWithoutWatcher(t *testing.T) {
	am, err := NewAssetManager(false)
	if err != nil {
		t.Fatal(err)
	}
	h := metadata.NewHandle(metadata.ResourceTypeShader)
	if err := am.Watch("shaders/phong.ksh", h); err != nil {
		t.Fatal(err)
	}
	info, ok := am.Lookup("shaders/phong.ksh")
	if !ok || info.Handle != h || info.Type != AssetTypeShader {
		t.Fatalf("Lookup = %+v, %v", info, ok)
	}
	am.Unwatch(h)
	if _, ok := am.Lookup("shaders/phong.ksh"); ok {
		t.Error("asset still tracked after Unwatch")
	}
	if err := am.Close(); err != nil {
		t.Fatal(err)
	}
	if err := am.Watch("shaders/phong.ksh", h); err != ErrWatcherClosed {
		t.Errorf("Watch after Close returned %v", err)
	}
	if _, open := <-am.Reloads(); open {
		t.Error("reload channel still open after Close")
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phong.ksh")
	if err := os.WriteFile(path, []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}

	am, err := NewAssetManager(true)
	if err != nil {
		t.Skipf("file watching unavailable: %v", err)
	}
	defer am.Close()

	h := metadata.NewHandle(metadata.ResourceTypeShader)
	if err := am.Watch(path, h); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{2}, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-am.Reloads():
		if e.Handle != h || filepath.Base(e.Path) != "phong.ksh" {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload event received")
	}
}
