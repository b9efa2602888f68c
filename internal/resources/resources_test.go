package resources

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/justinlevinedotme/pcmgen/internal/models"
)

func writeAsset(t *testing.T, assetsDir, pkgID, name string) {
	t.Helper()
	dir := filepath.Join(assetsDir, pkgID)
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755); err != nil {
		t.Fatalf("Failed to create asset dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("png bytes"), 0644); err != nil {
		t.Fatalf("Failed to write asset: %v", err)
	}
}

func TestBuildPacksPackageFolders(t *testing.T) {
	assetsDir := filepath.Join(t.TempDir(), "assets")
	writeAsset(t, assetsDir, "com.example.b", "icon.png")
	writeAsset(t, assetsDir, "com.example.a", "screenshots/one.png")

	data, err := Build(assetsDir)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if data == nil {
		t.Fatal("Expected archive bytes")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Output is not a valid zip: %v", err)
	}

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"com.example.a/screenshots/one.png", "com.example.b/icon.png"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected entry %q at %d, got %q", want[i], i, names[i])
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	assetsDir := filepath.Join(t.TempDir(), "assets")
	writeAsset(t, assetsDir, "com.example.a", "icon.png")

	first, err := Build(assetsDir)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := Build(assetsDir)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Identical assets must produce byte-identical archives")
	}
}

func TestBuildNoAssets(t *testing.T) {
	data, err := Build(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if data != nil {
		t.Error("Expected nil for missing assets directory")
	}

	empty := t.TempDir()
	data, err = Build(empty)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if data != nil {
		t.Error("Expected nil for assets directory without package folders")
	}
}

func TestWireLocalAssets(t *testing.T) {
	assetsDir := filepath.Join(t.TempDir(), "assets")
	writeAsset(t, assetsDir, "com.example.a", "icon.png")
	writeAsset(t, assetsDir, "com.example.a", "screenshot.png")

	pkg := &models.Package{Identifier: "com.example.a"}
	WireLocalAssets(pkg, assetsDir)

	if pkg.Resources["icon"] != "com.example.a/icon.png" {
		t.Errorf("Expected icon wired, got %v", pkg.Resources)
	}
	if pkg.Resources["screenshot"] != "com.example.a/screenshot.png" {
		t.Errorf("Expected screenshot wired, got %v", pkg.Resources)
	}
}

func TestWireLocalAssetsKeepsManifestValues(t *testing.T) {
	assetsDir := filepath.Join(t.TempDir(), "assets")
	writeAsset(t, assetsDir, "com.example.a", "icon.png")

	pkg := &models.Package{
		Identifier: "com.example.a",
		Resources:  map[string]string{"icon": "https://example.com/icon.png"},
	}
	WireLocalAssets(pkg, assetsDir)

	if pkg.Resources["icon"] != "https://example.com/icon.png" {
		t.Error("Manifest-provided resources must not be overwritten")
	}
}
