// Package resources packs per-package asset folders (icons, screenshots)
// into the single resources.zip the PCM client downloads alongside the
// descriptor.
package resources

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/justinlevinedotme/pcmgen/internal/models"
)

// Build creates resources.zip contents from assets/<identifier>/** folders.
// Returns (nil, nil) when there is nothing to pack. Entry order and headers
// are fixed so identical inputs produce identical archives.
func Build(assetsDir string) ([]byte, error) {
	entries, err := os.ReadDir(assetsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pkgDirs []string
	for _, e := range entries {
		if e.IsDir() {
			pkgDirs = append(pkgDirs, e.Name())
		}
	}
	if len(pkgDirs) == 0 {
		return nil, nil
	}
	sort.Slice(pkgDirs, func(i, j int) bool {
		return strings.ToLower(pkgDirs[i]) < strings.ToLower(pkgDirs[j])
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, pkgID := range pkgDirs {
		base := filepath.Join(assetsDir, pkgID)
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			// Fixed header fields keep the archive byte-stable across runs
			w, err := zw.CreateHeader(&zip.FileHeader{
				Name:   pkgID + "/" + filepath.ToSlash(rel),
				Method: zip.Deflate,
			})
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(w, f)
			return err
		})
		if err != nil {
			zw.Close()
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WireLocalAssets points a package's icon and screenshot resources at local
// asset files when they exist and the manifest did not already set them.
func WireLocalAssets(pkg *models.Package, assetsDir string) {
	dir := filepath.Join(assetsDir, pkg.Identifier)
	if _, err := os.Stat(dir); err != nil {
		return
	}
	wire := func(key, filename string) {
		if _, taken := pkg.Resources[key]; taken {
			return
		}
		if _, err := os.Stat(filepath.Join(dir, filename)); err != nil {
			return
		}
		if pkg.Resources == nil {
			pkg.Resources = make(map[string]string)
		}
		pkg.Resources[key] = pkg.Identifier + "/" + filename
	}
	wire("icon", "icon.png")
	wire("screenshot", "screenshot.png")
}
