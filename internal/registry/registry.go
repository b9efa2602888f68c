package registry

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/justinlevinedotme/pcmgen/internal/models"
)

// Mode selects how a source's metadata is fetched
type Mode string

const (
	// ModeReleaseScan scans GitHub releases for archive assets carrying a manifest
	ModeReleaseScan Mode = "release_scan"
	// ModeMirror fetches an already-built packages.json from another index
	ModeMirror Mode = "mirror_packages_json"
)

// Source is one upstream package entry tracked by the index. Entries are
// edited by hand in repos.yaml and are immutable during a pipeline run.
type Source struct {
	ID   string `yaml:"id"`
	Mode Mode   `yaml:"mode"`

	// release_scan fields
	Repo       string `yaml:"repo,omitempty"` // owner/name
	AssetGlob  string `yaml:"asset_glob,omitempty"`
	OnlyLatest bool   `yaml:"only_latest,omitempty"`

	// mirror_packages_json fields
	PackagesURL string `yaml:"packages_url,omitempty"`

	// Declared overrides; take precedence over fetched metadata
	Maintainer string `yaml:"maintainer,omitempty"`
	License    string `yaml:"license,omitempty"`
}

// Location returns the upstream location metadata is fetched from
func (s *Source) Location() string {
	if s.Mode == ModeMirror {
		return s.PackagesURL
	}
	return s.Repo
}

// Publish identifies where the generated artifacts are served from
type Publish struct {
	Repo   string `yaml:"repo,omitempty"`
	Branch string `yaml:"branch,omitempty"`
}

// Config is the parsed repos.yaml. It is passed into the pipeline by value
// at invocation; nothing reads it from ambient state.
type Config struct {
	Name       string        `yaml:"name"`
	Maintainer models.Person `yaml:"maintainer"`
	Publish    Publish       `yaml:"publish,omitempty"`
	Sources    []Source      `yaml:"sources"`
}

// Load reads and validates a registry file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.IndexError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to read registry: %w", err),
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &models.IndexError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to parse registry: %w", err),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the registry back out, preserving source order
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return &models.IndexError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to serialize registry: %w", err),
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks structural constraints: known modes, per-mode required
// fields, and uniqueness of both IDs and upstream locations.
func (c *Config) Validate() error {
	ids := make(map[string]bool)
	locations := make(map[string]bool)

	for i := range c.Sources {
		src := &c.Sources[i]

		if src.ID == "" {
			return invalidSource(src, fmt.Errorf("source %d has no id", i))
		}
		if ids[src.ID] {
			return invalidSource(src, fmt.Errorf("duplicate source id %q", src.ID))
		}
		ids[src.ID] = true

		switch src.Mode {
		case ModeReleaseScan:
			if src.Repo == "" || !strings.Contains(src.Repo, "/") {
				return invalidSource(src, fmt.Errorf("release_scan source needs repo in owner/name form, got %q", src.Repo))
			}
		case ModeMirror:
			if src.PackagesURL == "" {
				return invalidSource(src, fmt.Errorf("mirror source needs packages_url"))
			}
		default:
			return invalidSource(src, fmt.Errorf("unknown mode %q", src.Mode))
		}

		loc := src.Location()
		if locations[loc] {
			return invalidSource(src, fmt.Errorf("duplicate source location %q", loc))
		}
		locations[loc] = true
	}

	return nil
}

func invalidSource(src *Source, err error) error {
	return &models.IndexError{
		Type:   models.ErrInvalidConfig,
		Source: src.ID,
		Err:    err,
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9-_]+`)

// Slugify derives a source id from an arbitrary name
func Slugify(name string) string {
	return slugRe.ReplaceAllString(strings.ToLower(name), "-")
}

// AddReleaseSource appends a release_scan source derived from owner/repo
func (c *Config) AddReleaseSource(ownerRepo, assetGlob string, onlyLatest bool) Source {
	parts := strings.Split(ownerRepo, "/")
	src := Source{
		ID:         Slugify(parts[len(parts)-1]),
		Mode:       ModeReleaseScan,
		Repo:       ownerRepo,
		AssetGlob:  assetGlob,
		OnlyLatest: onlyLatest,
	}
	c.Sources = append(c.Sources, src)
	return src
}

// AddMirrorSource appends a mirror_packages_json source for a packages.json URL
func (c *Config) AddMirrorSource(packagesURL string) Source {
	base := path.Base(packagesURL)
	base = strings.TrimSuffix(base, path.Ext(base))
	src := Source{
		ID:          Slugify(base),
		Mode:        ModeMirror,
		PackagesURL: packagesURL,
	}
	c.Sources = append(c.Sources, src)
	return src
}

// RemoveSource deletes the source with the given id. Returns false when no
// such source exists.
func (c *Config) RemoveSource(id string) bool {
	kept := c.Sources[:0]
	removed := false
	for _, src := range c.Sources {
		if src.ID == id {
			removed = true
			continue
		}
		kept = append(kept, src)
	}
	c.Sources = kept
	return removed
}
