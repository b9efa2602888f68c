package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pcmgen",
		Short: "Generate a self-hosted KiCad PCM package index",
		Long: `Pcmgen maintains a custom KiCad Plugin & Content Manager repository.
It fetches package metadata from the upstream sources listed in repos.yaml,
validates it, and renders the repository descriptor (packages.json,
repository.json) together with the package table in README.md.

Sources can be GitHub repositories whose release assets carry a
manifest.json, or mirrors exposing an already-built packages.json.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewReadmeCmd())
	rootCmd.AddCommand(NewSourcesCmd())
	rootCmd.AddCommand(NewResourcesCmd())

	return rootCmd
}
