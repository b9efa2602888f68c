package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/renderer"
	"github.com/justinlevinedotme/pcmgen/internal/utils"
)

// NewReadmeCmd creates the readme command, which re-renders the package
// table from an already-published packages.json without touching upstream.
func NewReadmeCmd() *cobra.Command {
	var packagesPath string
	var readmePath string

	cmd := &cobra.Command{
		Use:   "readme",
		Short: "Re-render the README package table from packages.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(packagesPath)
			if err != nil {
				return &models.IndexError{
					Type: models.ErrInvalidConfig,
					Err:  fmt.Errorf("failed to read packages file: %w", err),
				}
			}

			var doc models.PackagesFile
			if err := json.Unmarshal(data, &doc); err != nil {
				return &models.IndexError{
					Type: models.ErrInvalidConfig,
					Err:  fmt.Errorf("failed to parse packages file: %w", err),
				}
			}

			readme, err := os.ReadFile(readmePath)
			if err != nil {
				return &models.IndexError{Type: models.ErrTemplate, Err: err}
			}

			updated, err := renderer.UpdateDocument(readme, doc.Packages, time.Now())
			if err != nil {
				return err
			}

			if string(updated) == string(readme) {
				logrus.Info("README is already up to date")
				return nil
			}
			if err := utils.AtomicWriteFile(readmePath, updated, 0644); err != nil {
				return &models.IndexError{Type: models.ErrRender, Err: err}
			}
			logrus.Infof("Updated %s (%d packages)", readmePath, len(doc.Packages))
			return nil
		},
	}

	cmd.Flags().StringVar(&packagesPath, "packages", "packages.json", "Published packages descriptor")
	cmd.Flags().StringVar(&readmePath, "readme", "README.md", "Document carrying the package table")

	return cmd
}
