package renderer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/utils"
)

// RenderPackages serializes the validated entry set as packages.json.
// The output is a pure function of the input: same entries, same bytes.
func RenderPackages(pkgs []models.Package) ([]byte, error) {
	if pkgs == nil {
		pkgs = []models.Package{}
	}
	doc := models.PackagesFile{Packages: pkgs}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &models.IndexError{
			Type: models.ErrRender,
			Err:  fmt.Errorf("failed to serialize packages: %w", err),
		}
	}
	return append(data, '\n'), nil
}

// RenderRepository serializes repository.json. The sha256 fields pin the
// exact bytes being published alongside it; the update time fields are the
// only values that change between runs with identical input.
func RenderRepository(reg RepositoryMeta, packagesBytes, resourcesBytes []byte, now time.Time) ([]byte, error) {
	now = now.UTC()
	repo := models.Repository{
		Schema:     models.RepositorySchema,
		Name:       reg.Name,
		Maintainer: reg.Maintainer,
		Packages: models.ArtifactRef{
			URL:           reg.PackagesURL,
			SHA256:        utils.SHA256Bytes(packagesBytes),
			UpdateTimeUTC: now.Format("2006-01-02 15:04:05"),
			UpdateEpoch:   now.Unix(),
		},
	}

	if resourcesBytes != nil {
		repo.Resources = &models.ArtifactRef{
			URL:           reg.ResourcesURL,
			SHA256:        utils.SHA256Bytes(resourcesBytes),
			UpdateTimeUTC: now.Format("2006-01-02 15:04:05"),
			UpdateEpoch:   now.Unix(),
		}
	}

	data, err := json.MarshalIndent(repo, "", "  ")
	if err != nil {
		return nil, &models.IndexError{
			Type: models.ErrRender,
			Err:  fmt.Errorf("failed to serialize repository: %w", err),
		}
	}
	return append(data, '\n'), nil
}

// RepositoryMeta carries the repository-level fields of repository.json
type RepositoryMeta struct {
	Name         string
	Maintainer   models.Person
	PackagesURL  string
	ResourcesURL string
}
