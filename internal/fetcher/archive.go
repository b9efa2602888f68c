package fetcher

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Manifest file names recognized inside package archives, in preference order.
var manifestNames = []string{"manifest.json", "metadata.json"}

// ReadManifestFromArchive extracts and parses manifest.json or metadata.json
// from a ZIP or TAR archive (gzip, xz, or uncompressed). The manifest may
// sit at the archive root or inside a single top-level folder, which is how
// GitHub source archives are laid out. Returns the parsed manifest and the
// archive-internal filename it was read from.
func ReadManifestFromArchive(blob []byte) (map[string]any, string, error) {
	if m, name, err := readManifestFromZip(blob); err == nil {
		return m, name, nil
	} else if name != "" {
		// Found a manifest entry but could not parse it
		return nil, "", fmt.Errorf("parse error in %s: %w", name, err)
	}

	if m, name, err := readManifestFromTar(blob); err == nil {
		return m, name, nil
	} else if name != "" {
		return nil, "", fmt.Errorf("parse error in %s: %w", name, err)
	}

	return nil, "", fmt.Errorf("no usable manifest.json/metadata.json in archive")
}

func readManifestFromZip(blob []byte) (map[string]any, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, "", err
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	target := selectManifestName(names)
	if target == "" {
		return nil, "", fmt.Errorf("no manifest entry")
	}

	for _, f := range zr.File {
		if f.Name != target {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, target, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, target, err
		}
		m, err := parseManifest(data)
		return m, target, err
	}
	return nil, "", fmt.Errorf("no manifest entry")
}

func readManifestFromTar(blob []byte) (map[string]any, string, error) {
	r, err := decompress(blob)
	if err != nil {
		return nil, "", err
	}

	var names []string
	contents := make(map[string][]byte)

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		names = append(names, hdr.Name)
		if isManifestCandidate(hdr.Name) {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, "", err
			}
			contents[hdr.Name] = data
		}
	}

	target := selectManifestName(names)
	if target == "" {
		return nil, "", fmt.Errorf("no manifest entry")
	}

	data, ok := contents[target]
	if !ok {
		return nil, "", fmt.Errorf("no manifest entry")
	}
	m, err := parseManifest(data)
	return m, target, err
}

// decompress wraps the blob in the right decompressor based on magic bytes,
// falling back to treating it as an uncompressed tar.
func decompress(blob []byte) (io.Reader, error) {
	if len(blob) >= 2 && blob[0] == 0x1F && blob[1] == 0x8B {
		return gzip.NewReader(bytes.NewReader(blob))
	}
	if len(blob) >= 6 && bytes.HasPrefix(blob, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}) {
		return xz.NewReader(bytes.NewReader(blob))
	}
	return bytes.NewReader(blob), nil
}

func isManifestCandidate(name string) bool {
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	for _, mn := range manifestNames {
		if base == mn {
			return true
		}
	}
	return false
}

// selectManifestName picks the manifest path from an archive file listing:
// exact root match first, then inside a single top-level folder.
func selectManifestName(names []string) string {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	for _, mn := range manifestNames {
		if set[mn] {
			return mn
		}
	}

	toplevels := make(map[string]bool)
	for _, n := range names {
		if i := strings.Index(n, "/"); i > 0 {
			toplevels[n[:i]] = true
		}
	}
	if len(toplevels) == 1 {
		var root string
		for r := range toplevels {
			root = r
		}
		for _, mn := range manifestNames {
			if cand := root + "/" + mn; set[cand] {
				return cand
			}
		}
	}

	return ""
}

func parseManifest(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := decodeTolerantJSON(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

var (
	jsonCommentRe       = regexp.MustCompile(`(?m)(//[^\n]*$)|(/\*(?s:.*?)\*/)`)
	jsonTrailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// decodeTolerantJSON parses JSON, retrying once with // and block comments
// plus trailing commas stripped. Upstream manifests are hand-written and
// frequently carry both.
func decodeTolerantJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err == nil {
		return nil
	}
	cleaned := jsonCommentRe.ReplaceAll(data, nil)
	cleaned = jsonTrailingCommaRe.ReplaceAll(cleaned, []byte("$1"))
	return json.Unmarshal(cleaned, v)
}
