package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/justinlevinedotme/pcmgen/internal/models"
	"github.com/justinlevinedotme/pcmgen/internal/registry"
)

// NewSourcesCmd creates the sources command group for editing repos.yaml
func NewSourcesCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source registry",
	}
	cmd.PersistentFlags().StringVarP(&registryPath, "registry", "c", "repos.yaml", "Source registry file")

	addRelease := &cobra.Command{
		Use:   "add-release <owner/repo> <asset-glob>",
		Short: "Add a GitHub release-scan source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			onlyLatest, _ := cmd.Flags().GetBool("only-latest")
			return editRegistry(registryPath, func(reg *registry.Config) (string, error) {
				src := reg.AddReleaseSource(args[0], args[1], onlyLatest)
				return fmt.Sprintf("Added release source %s (%s)", src.ID, src.Repo), nil
			})
		},
	}
	addRelease.Flags().Bool("only-latest", false, "Scan only the newest release")

	addMirror := &cobra.Command{
		Use:   "add-mirror <packages-json-url>",
		Short: "Add a mirrored packages.json source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editRegistry(registryPath, func(reg *registry.Config) (string, error) {
				src := reg.AddMirrorSource(args[0])
				return fmt.Sprintf("Added mirror source %s (%s)", src.ID, src.PackagesURL), nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a source by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editRegistry(registryPath, func(reg *registry.Config) (string, error) {
				if !reg.RemoveSource(args[0]) {
					return "", fmt.Errorf("no source with id %q", args[0])
				}
				return fmt.Sprintf("Removed source %s", args[0]), nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(registryPath)
			if err != nil {
				return err
			}
			for _, src := range reg.Sources {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", src.ID, src.Mode, src.Location())
			}
			return nil
		},
	}

	cmd.AddCommand(addRelease, addMirror, remove, list)
	return cmd
}

// editRegistry loads, mutates, validates, and saves the registry in one step
func editRegistry(path string, mutate func(*registry.Config) (string, error)) error {
	reg, err := registry.Load(path)
	if err != nil {
		return err
	}

	msg, err := mutate(reg)
	if err != nil {
		return &models.IndexError{Type: models.ErrInvalidConfig, Err: err}
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	if err := registry.Save(path, reg); err != nil {
		return err
	}

	logrus.Info(msg)
	return nil
}
