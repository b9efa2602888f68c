package models

// PackageSchema is the $schema value stamped on generated package entries.
const PackageSchema = "https://go.kicad.org/pcm/schemas/v1"

// Person is a package author or maintainer. Contact maps a label
// (homepage, github, ...) to an address or URL.
type Person struct {
	Name    string            `json:"name" yaml:"name"`
	Contact map[string]string `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// Version is one downloadable release of a package
type Version struct {
	Version        string `json:"version"`
	DownloadURL    string `json:"download_url"`
	DownloadSHA256 string `json:"download_sha256"`
	DownloadSize   int64  `json:"download_size"`
	InstallSize    int64  `json:"install_size,omitempty"`
	Status         string `json:"status"`
	KicadVersion   string `json:"kicad_version"`
}

// Package is a validated PCM package entry as it appears in packages.json.
// Every Package corresponds to exactly one registry source; sources whose
// metadata fails validation produce no Package at all.
type Package struct {
	Schema          string            `json:"$schema,omitempty"`
	Identifier      string            `json:"identifier"`
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Description     string            `json:"description"`
	DescriptionFull string            `json:"description_full,omitempty"`
	License         string            `json:"license"`
	Author          *Person           `json:"author,omitempty"`
	Maintainer      *Person           `json:"maintainer,omitempty"`
	Resources       map[string]string `json:"resources,omitempty"`
	Versions        []Version         `json:"versions"`
}

// DisplayName returns the human-readable name for table rendering
func (p *Package) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Identifier != "" {
		return p.Identifier
	}
	return "(unknown)"
}

// Homepage returns the homepage resource URL, if any
func (p *Package) Homepage() string {
	return p.Resources["homepage"]
}
