package models

import "time"

// RepositorySchema is the $schema value for the repository descriptor.
const RepositorySchema = "https://gitlab.com/kicad/code/kicad/-/raw/master/kicad/pcm/schemas/pcm.v1.schema.json#/definitions/Repository"

// PackagesFile is the top-level packages.json document
type PackagesFile struct {
	Packages []Package `json:"packages"`
}

// ArtifactRef points the PCM client at a published artifact and pins its
// contents with a checksum and generation time.
type ArtifactRef struct {
	URL           string `json:"url"`
	SHA256        string `json:"sha256"`
	UpdateTimeUTC string `json:"update_time_utc"`
	UpdateEpoch   int64  `json:"update_timestamp"`
}

// Repository is the top-level repository.json document
type Repository struct {
	Schema     string       `json:"$schema"`
	Name       string       `json:"name"`
	Maintainer Person       `json:"maintainer"`
	Packages   ArtifactRef  `json:"packages"`
	Resources  *ArtifactRef `json:"resources,omitempty"`
}

// IndexConfig contains configuration for one index generation run
type IndexConfig struct {
	// Input/Output
	RegistryPath string // repos.yaml
	OutputDir    string // where packages.json / repository.json land
	ReadmePath   string // document carrying the sentinel-marked table
	AssetsDir    string // per-package icon/screenshot folders

	// Upstream access
	Token        string        // GitHub token, optional
	Concurrency  int           // fetch worker pool size
	FetchTimeout time.Duration // per-source timeout

	// Publishing
	PublishRepo   string // owner/name the raw artifact URLs point at
	PublishBranch string

	// Signing
	GPGKeyPath    string
	GPGPassphrase string
}

// RawURL returns the public raw URL for a published artifact
func (c *IndexConfig) RawURL(filename string) string {
	branch := c.PublishBranch
	if branch == "" {
		branch = "main"
	}
	return "https://raw.githubusercontent.com/" + c.PublishRepo + "/" + branch + "/" + filename
}
