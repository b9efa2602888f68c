package renderer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/validator"
)

// Sentinel markers delimiting the generated region of the target document.
// Everything outside them is hand-authored and must survive byte-identical.
const (
	StartMarker = "<!-- AUTO-INDEX:START -->"
	EndMarker   = "<!-- AUTO-INDEX:END -->"
)

const licensingNote = "> ⚖️ **Licensing Note:** This index aggregates third-party KiCad packages. " +
	"Please review and respect each project's license before use or redistribution. " +
	"If a license isn't specified here, check the upstream repository. " +
	"While this repository itself is MIT-licensed, the packages included retain their original licenses."

// UpdateDocument replaces the sentinel-marked region of doc with a freshly
// rendered table block. Bytes outside the markers are returned unchanged.
func UpdateDocument(doc []byte, pkgs []models.Package, now time.Time) ([]byte, error) {
	start := bytes.Index(doc, []byte(StartMarker))
	if start < 0 {
		return nil, templateErr(fmt.Errorf("start marker %q not found", StartMarker))
	}
	end := bytes.Index(doc, []byte(EndMarker))
	if end < 0 {
		return nil, templateErr(fmt.Errorf("end marker %q not found", EndMarker))
	}
	if end < start {
		return nil, templateErr(fmt.Errorf("end marker precedes start marker"))
	}

	block := RenderBlock(pkgs, now)

	var out bytes.Buffer
	out.Grow(len(doc) + len(block))
	out.Write(doc[:start])
	out.WriteString(block)
	out.Write(doc[end+len(EndMarker):])
	return out.Bytes(), nil
}

// RenderBlock renders the full marker-delimited block: licensing note,
// package table, and the timestamp/count footer.
func RenderBlock(pkgs []models.Package, now time.Time) string {
	var b strings.Builder
	b.WriteString(StartMarker)
	b.WriteString("\n\n")
	b.WriteString(licensingNote)
	b.WriteString("\n\n")
	b.WriteString(renderTable(pkgs))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "_Last updated: %s • Packages: %d_\n",
		now.UTC().Format("2006-01-02 15:04 UTC"), len(pkgs))
	b.WriteString(EndMarker)
	return b.String()
}

func renderTable(pkgs []models.Package) string {
	if len(pkgs) == 0 {
		return "_No packages indexed yet._"
	}

	sorted := make([]models.Package, len(pkgs))
	copy(sorted, pkgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].DisplayName()) < strings.ToLower(sorted[j].DisplayName())
	})

	lines := []string{
		"| 📦 Package | 👤 Maintainer | 🧾 License |",
		"|---|---|---|",
	}
	for i := range sorted {
		lines = append(lines, packageRow(&sorted[i]))
	}
	return strings.Join(lines, "\n")
}

func packageRow(p *models.Package) string {
	name := p.DisplayName()
	if home := p.Homepage(); home != "" {
		name = fmt.Sprintf("[%s](%s)", name, home)
	}
	return fmt.Sprintf("| %s | %s | %s |", name, maintainerCell(p), p.License)
}

// maintainerCell links the maintainer name when a url-like contact entry
// exists; "-" when no maintainer resolved at all.
func maintainerCell(p *models.Package) string {
	m := p.Maintainer
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return "-"
	}
	name := strings.TrimSpace(m.Name)
	if url := validator.FirstURLLike(m.Contact); url != "" {
		return fmt.Sprintf("[%s](%s)", name, url)
	}
	return name
}

func templateErr(err error) error {
	return &models.IndexError{
		Type: models.ErrTemplate,
		Err:  err,
	}
}
