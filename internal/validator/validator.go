// Package validator turns raw fetched metadata into validated package
// entries. It is pure: no I/O, no side effects, and a source whose metadata
// fails any rule produces no entry at all rather than a defaulted one.
package validator

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/justinlevinedotme/pcmgen/internal/fetcher"
	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
)

//go:embed package.schema.json
var packageSchemaJSON string

var manifestSchema = jsonschema.MustCompileString("package.schema.json", packageSchemaJSON)

// Contact keys probed, in order, for a linkable maintainer URL
var urlKeys = []string{
	"homepage", "website", "web", "url", "github", "gitlab",
	"source", "repo", "repository", "twitter",
}

// Resolve validates one fetched package against the manifest schema and the
// field rules, applying the source's declared overrides. The returned entry
// is ready for rendering; the error names the offending field.
func Resolve(src registry.Source, raw fetcher.RawPackage) (*models.Package, error) {
	if raw.Fields == nil {
		return nil, validationErr(src, fmt.Errorf("empty metadata"))
	}

	if err := manifestSchema.Validate(map[string]any(raw.Fields)); err != nil {
		return nil, validationErr(src, fmt.Errorf("manifest schema: %w", err))
	}

	name := strings.TrimSpace(stringField(raw.Fields, "name"))
	if name == "" {
		return nil, validationErr(src, fmt.Errorf("empty name"))
	}

	identifier := strings.TrimSpace(stringField(raw.Fields, "identifier"))
	if identifier == "" {
		identifier = src.ID
	}

	versions := raw.Versions
	if len(versions) == 0 {
		versions = parseVersions(raw.Fields["versions"])
	}
	if len(versions) == 0 {
		return nil, validationErr(src, fmt.Errorf("no versions"))
	}
	for _, v := range versions {
		if v.DownloadURL == "" {
			return nil, validationErr(src, fmt.Errorf("version %s has no download url", v.Version))
		}
	}
	sortVersions(versions)

	license := strings.TrimSpace(src.License)
	if license == "" {
		license = resolveLicense(raw.Fields)
	}
	if license == "" {
		return nil, validationErr(src, fmt.Errorf("missing license"))
	}

	maintainer := personField(raw.Fields, "maintainer")
	author := personField(raw.Fields, "author")
	if src.Maintainer != "" {
		maintainer = &models.Person{Name: src.Maintainer}
	} else if maintainer == nil {
		maintainer = author
	}

	description := strings.TrimSpace(stringField(raw.Fields, "description"))
	if description == "" {
		description = fmt.Sprintf("%s package", identifier)
	}

	pkg := &models.Package{
		Schema:          models.PackageSchema,
		Identifier:      identifier,
		Name:            name,
		Type:            stringFieldDefault(raw.Fields, "type", "library"),
		Description:     description,
		DescriptionFull: strings.TrimSpace(stringField(raw.Fields, "description_full")),
		License:         license,
		Author:          author,
		Maintainer:      maintainer,
		Resources:       stringMapField(raw.Fields, "resources"),
		Versions:        versions,
	}
	return pkg, nil
}

// FirstURLLike returns the first http(s) value among the known contact keys
func FirstURLLike(contact map[string]string) string {
	for _, k := range urlKeys {
		v := contact[k]
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return v
		}
	}
	return ""
}

// resolveLicense walks the places upstream metadata hides a license:
// top-level license/licenses, resources, then the newest version.
func resolveLicense(fields map[string]any) string {
	for _, key := range []string{"license", "licenses"} {
		if s := normalizeLicense(fields[key]); s != "" {
			return s
		}
	}
	if res, ok := fields["resources"].(map[string]any); ok {
		if s := normalizeLicense(res["license"]); s != "" {
			return s
		}
		if s := normalizeLicense(res["licenses"]); s != "" {
			return s
		}
	}
	if rawVersions, ok := fields["versions"].([]any); ok && len(rawVersions) > 0 {
		if newest, ok := rawVersions[0].(map[string]any); ok {
			if s := normalizeLicense(newest["license"]); s != "" {
				return s
			}
		}
	}
	return ""
}

// normalizeLicense flattens the string, SPDX-object, and list forms a
// license field shows up in.
func normalizeLicense(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, k := range []string{"spdx_id", "id", "name", "license", "title"} {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	case []any:
		var parts []string
		for _, item := range v {
			if s := normalizeLicense(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// sortVersions orders newest first, parsing semver-ish strings where
// possible and falling back to reverse lexicographic comparison.
func sortVersions(versions []models.Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, errI := goversion.NewVersion(versions[i].Version)
		vj, errJ := goversion.NewVersion(versions[j].Version)
		if errI == nil && errJ == nil {
			return vi.GreaterThan(vj)
		}
		return versions[i].Version > versions[j].Version
	})
}

func parseVersions(value any) []models.Version {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]models.Version, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Version{
			Version:        strings.TrimSpace(stringField(m, "version")),
			DownloadURL:    stringField(m, "download_url"),
			DownloadSHA256: stringField(m, "download_sha256"),
			DownloadSize:   intField(m, "download_size"),
			InstallSize:    intField(m, "install_size"),
			Status:         stringFieldDefault(m, "status", "testing"),
			KicadVersion:   stringFieldDefault(m, "kicad_version", "8.0"),
		})
	}
	return out
}

func personField(m map[string]any, key string) *models.Person {
	obj, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	name := strings.TrimSpace(stringField(obj, "name"))
	if name == "" {
		return nil
	}
	p := &models.Person{Name: name}
	if contact, ok := obj["contact"].(map[string]any); ok {
		p.Contact = make(map[string]string, len(contact))
		for k, v := range contact {
			if s, ok := v.(string); ok {
				p.Contact[k] = s
			}
		}
	}
	return p
}

func stringMapField(m map[string]any, key string) map[string]string {
	obj, ok := m[key].(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringFieldDefault(m map[string]any, key, def string) string {
	if s := strings.TrimSpace(stringField(m, key)); s != "" {
		return s
	}
	return def
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func validationErr(src registry.Source, err error) error {
	return &models.IndexError{
		Type:   models.ErrValidation,
		Source: src.ID,
		Err:    err,
	}
}
