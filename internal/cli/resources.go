package cli

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/resources"
	"github.com/justinlevinedotme/pcmgen/internal/utils"
)

// NewResourcesCmd creates the resources command, which packs per-package
// asset folders into resources.zip.
func NewResourcesCmd() *cobra.Command {
	var assetsDir string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Build resources.zip from per-package asset folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath := filepath.Join(outputDir, "resources.zip")

			data, err := resources.Build(assetsDir)
			if err != nil {
				return &models.IndexError{Type: models.ErrRender, Err: err}
			}

			if data == nil {
				if _, err := os.Stat(outPath); err == nil {
					if err := os.Remove(outPath); err != nil {
						return err
					}
					logrus.Info("Removed stale resources.zip (no assets found)")
				} else {
					logrus.Info("No asset folders; nothing to build")
				}
				return nil
			}

			if err := utils.AtomicWriteFile(outPath, data, 0644); err != nil {
				return &models.IndexError{Type: models.ErrRender, Err: err}
			}
			logrus.Infof("Built %s (%d bytes)", outPath, len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&assetsDir, "assets-dir", "assets", "Per-package asset folders")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Output directory")

	return cmd
}
