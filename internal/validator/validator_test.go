package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/justinlevinedotme/pcmgen/internal/fetcher"
	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
)

func testSource() registry.Source {
	return registry.Source{
		ID:   "kicad-jlcpcb-tools",
		Mode: registry.ModeReleaseScan,
		Repo: "Bouni/kicad-jlcpcb-tools",
	}
}

func testVersion() models.Version {
	return models.Version{
		Version:        "1.0.0",
		DownloadURL:    "https://github.com/Bouni/kicad-jlcpcb-tools/releases/download/v1.0.0/pkg.zip",
		DownloadSHA256: "abc",
		DownloadSize:   10,
		Status:         "stable",
		KicadVersion:   "8.0",
	}
}

func validationType(t *testing.T, err error) models.ErrorType {
	t.Helper()
	var ie *models.IndexError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected IndexError, got %T: %v", err, err)
	}
	return ie.Type
}

func TestResolveValidManifest(t *testing.T) {
	raw := fetcher.RawPackage{
		Fields: map[string]any{
			"identifier": "com.github.bouni.kicad-jlcpcb-tools",
			"name":       "KiCAD JLCPCB tools",
			"license":    "WTFPL",
			"maintainer": map[string]any{
				"name":    "Bouni",
				"contact": map[string]any{"github": "https://github.com/Bouni"},
			},
			"resources": map[string]any{"homepage": "https://github.com/Bouni/kicad-jlcpcb-tools"},
		},
		Versions: []models.Version{testVersion()},
	}

	pkg, err := Resolve(testSource(), raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if pkg.Name != "KiCAD JLCPCB tools" {
		t.Errorf("Unexpected name: %q", pkg.Name)
	}
	if pkg.License != "WTFPL" {
		t.Errorf("Unexpected license: %q", pkg.License)
	}
	if pkg.Maintainer == nil || pkg.Maintainer.Name != "Bouni" {
		t.Errorf("Unexpected maintainer: %+v", pkg.Maintainer)
	}
	if pkg.Type != "library" {
		t.Errorf("Expected defaulted type, got %q", pkg.Type)
	}
	if pkg.Schema != models.PackageSchema {
		t.Errorf("Expected schema stamp, got %q", pkg.Schema)
	}
	if pkg.Resources["homepage"] != "https://github.com/Bouni/kicad-jlcpcb-tools" {
		t.Errorf("Unexpected resources: %v", pkg.Resources)
	}
}

func TestResolveMissingLicenseFails(t *testing.T) {
	raw := fetcher.RawPackage{
		Fields:   map[string]any{"name": "No License"},
		Versions: []models.Version{testVersion()},
	}

	_, err := Resolve(testSource(), raw)
	if err == nil {
		t.Fatal("Expected missing license error, got nil")
	}
	if validationType(t, err) != models.ErrValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing license") {
		t.Errorf("Error should name the missing field: %v", err)
	}
}

func TestResolveDeclaredLicenseOverride(t *testing.T) {
	src := testSource()
	src.License = "MIT"

	raw := fetcher.RawPackage{
		Fields:   map[string]any{"name": "No License", "license": "WTFPL"},
		Versions: []models.Version{testVersion()},
	}

	pkg, err := Resolve(src, raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if pkg.License != "MIT" {
		t.Errorf("Declared override should win, got %q", pkg.License)
	}
}

func TestResolveLicenseNormalization(t *testing.T) {
	tests := []struct {
		name  string
		field any
		want  string
	}{
		{"string", "Apache-2.0", "Apache-2.0"},
		{"spdx object", map[string]any{"spdx_id": "GPL-3.0"}, "GPL-3.0"},
		{"named object", map[string]any{"name": "BSD-2-Clause"}, "BSD-2-Clause"},
		{"list", []any{"MIT", map[string]any{"id": "ISC"}}, "MIT, ISC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fetcher.RawPackage{
				Fields:   map[string]any{"name": "Pkg", "license": tt.field},
				Versions: []models.Version{testVersion()},
			}
			pkg, err := Resolve(testSource(), raw)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if pkg.License != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, pkg.License)
			}
		})
	}
}

func TestResolveMaintainerFallbackToAuthor(t *testing.T) {
	raw := fetcher.RawPackage{
		Fields: map[string]any{
			"name":    "Pkg",
			"license": "MIT",
			"author":  map[string]any{"name": "Author Person"},
		},
		Versions: []models.Version{testVersion()},
	}

	pkg, err := Resolve(testSource(), raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if pkg.Maintainer == nil || pkg.Maintainer.Name != "Author Person" {
		t.Errorf("Expected author fallback, got %+v", pkg.Maintainer)
	}
}

func TestResolveDeclaredMaintainerOverride(t *testing.T) {
	src := testSource()
	src.Maintainer = "Override Person"

	raw := fetcher.RawPackage{
		Fields: map[string]any{
			"name":       "Pkg",
			"license":    "MIT",
			"maintainer": map[string]any{"name": "Manifest Person"},
		},
		Versions: []models.Version{testVersion()},
	}

	pkg, err := Resolve(src, raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if pkg.Maintainer.Name != "Override Person" {
		t.Errorf("Declared override should win, got %q", pkg.Maintainer.Name)
	}
}

func TestResolveEmptyNameFails(t *testing.T) {
	raw := fetcher.RawPackage{
		Fields:   map[string]any{"name": "   ", "license": "MIT"},
		Versions: []models.Version{testVersion()},
	}

	if _, err := Resolve(testSource(), raw); err == nil {
		t.Fatal("Expected empty name error, got nil")
	}
}

func TestResolveSchemaRejectsMissingName(t *testing.T) {
	raw := fetcher.RawPackage{
		Fields:   map[string]any{"license": "MIT"},
		Versions: []models.Version{testVersion()},
	}

	_, err := Resolve(testSource(), raw)
	if err == nil {
		t.Fatal("Expected schema error, got nil")
	}
	if validationType(t, err) != models.ErrValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestResolveNoVersionsFails(t *testing.T) {
	raw := fetcher.RawPackage{
		Fields: map[string]any{"name": "Pkg", "license": "MIT"},
	}

	if _, err := Resolve(testSource(), raw); err == nil {
		t.Fatal("Expected no versions error, got nil")
	}
}

func TestResolveVersionsFromManifestFields(t *testing.T) {
	// Mirror mode carries versions inside the raw fields
	raw := fetcher.RawPackage{
		Fields: map[string]any{
			"name":    "Mirrored",
			"license": "MIT",
			"versions": []any{
				map[string]any{"version": "1.2.0", "download_url": "https://example.com/a.zip", "download_size": float64(42)},
				map[string]any{"version": "1.10.0", "download_url": "https://example.com/b.zip"},
			},
		},
	}

	pkg, err := Resolve(testSource(), raw)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(pkg.Versions) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(pkg.Versions))
	}
	if pkg.Versions[0].Version != "1.10.0" {
		t.Errorf("Expected semantic newest-first ordering, got %q first", pkg.Versions[0].Version)
	}
	if pkg.Versions[1].DownloadSize != 42 {
		t.Errorf("Expected download size carried over, got %d", pkg.Versions[1].DownloadSize)
	}
}

func TestFirstURLLike(t *testing.T) {
	contact := map[string]string{
		"email":  "someone@example.com",
		"github": "https://github.com/someone",
	}
	if got := FirstURLLike(contact); got != "https://github.com/someone" {
		t.Errorf("Expected github URL, got %q", got)
	}
	if got := FirstURLLike(map[string]string{"email": "x@y.z"}); got != "" {
		t.Errorf("Expected empty for non-url contacts, got %q", got)
	}
}
