package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justinlevinedotme/pcmgen/internal/fetcher"
	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/pipeline"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
	"github.com/justinlevinedotme/pcmgen/internal/signer"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	var config models.IndexConfig

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full index generation pipeline",
		Long: `Fetches metadata for every source in the registry, validates it, and
publishes packages.json, repository.json and the README package table.
Sources that fail to fetch or validate are excluded and reported; the run
still succeeds. Nothing is written unless all artifacts render cleanly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfig(&config); err != nil {
				return err
			}

			reg, err := registry.Load(config.RegistryPath)
			if err != nil {
				return err
			}
			if config.PublishRepo == "" && reg.Publish.Repo == "" {
				return &models.IndexError{
					Type: models.ErrInvalidConfig,
					Err:  fmt.Errorf("no publish repo: set --publish-repo, publish.repo in the registry, or GITHUB_REPOSITORY"),
				}
			}

			logrus.Infof("Starting index generation for %d source(s)...", len(reg.Sources))

			var sign signer.Signer
			if config.GPGKeyPath != "" {
				sign, err = signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
				if err != nil {
					return &models.IndexError{
						Type: models.ErrInvalidConfig,
						Err:  fmt.Errorf("failed to initialize GPG signer: %w", err),
					}
				}
				logrus.Info("GPG signer initialized")
			}

			runner := pipeline.New(config, fetcher.NewDispatcher(config.Token), sign)
			report, err := runner.Run(cmd.Context(), reg)
			if err != nil {
				return err
			}

			for _, f := range report.Failures {
				logrus.Warnf("Excluded %s: %v", f.SourceID, f.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&config.RegistryPath, "registry", "c", "repos.yaml", "Source registry file")
	cmd.Flags().StringVarP(&config.OutputDir, "output-dir", "o", ".", "Output directory for descriptors")
	cmd.Flags().StringVar(&config.ReadmePath, "readme", "README.md", "Document carrying the package table")
	cmd.Flags().StringVar(&config.AssetsDir, "assets-dir", "assets", "Per-package icon/screenshot folders")
	cmd.Flags().IntVar(&config.Concurrency, "concurrency", pipeline.DefaultConcurrency, "Parallel source fetches")
	cmd.Flags().DurationVar(&config.FetchTimeout, "fetch-timeout", pipeline.DefaultFetchTimeout, "Timeout per source fetch")
	cmd.Flags().StringVar(&config.PublishRepo, "publish-repo", "", "owner/name the raw artifact URLs point at")
	cmd.Flags().StringVar(&config.PublishBranch, "publish-branch", "main", "Branch for raw artifact URLs")
	cmd.Flags().StringVarP(&config.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key for descriptor signatures")
	cmd.Flags().StringVarP(&config.GPGPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")

	return cmd
}

func validateConfig(config *models.IndexConfig) error {
	if config.RegistryPath == "" {
		return &models.IndexError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("registry is required"),
		}
	}
	if config.OutputDir == "" {
		return &models.IndexError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("output-dir is required"),
		}
	}

	if config.Token == "" {
		config.Token = os.Getenv("GITHUB_TOKEN")
	}
	if config.Token == "" {
		config.Token = os.Getenv("GH_TOKEN")
	}
	if config.PublishRepo == "" {
		config.PublishRepo = os.Getenv("GITHUB_REPOSITORY")
	}

	return nil
}
