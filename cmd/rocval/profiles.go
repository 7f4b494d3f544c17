package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rocval-dev/rocval/internal/profiles"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect available validation profiles",
	Long:  `List and describe the validation profiles found in the profiles directory.`,
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.PersistentFlags().StringVar(&profilesDir, "profiles-dir", "", "Directory holding profile documents (default: bundled profiles)")
}

// resolveProfilesDir applies the flag and the config file in that order. An
// empty result means no directory was configured and the bundled profiles
// apply.
func resolveProfilesDir() string {
	if profilesDir != "" {
		return profilesDir
	}
	return viper.GetString("profiles_dir")
}

// loadRegistry compiles every profile document under dir into a fresh
// registry, falling back to the profiles bundled with the binary when no
// directory is configured.
func loadRegistry(dir string) (*profiles.Registry, error) {
	registry := profiles.NewRegistry()

	if dir == "" {
		slog.Debug("loading bundled profiles")
		if err := registry.LoadDefaults(); err != nil {
			return nil, fmt.Errorf("failed to load bundled profiles: %w", err)
		}
		slog.Debug("profiles loaded", "count", registry.Len())
		return registry, nil
	}

	slog.Debug("loading profiles", "dir", dir)
	if err := registry.LoadDir(dir); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no profile documents found in %s", dir)
	}
	slog.Debug("profiles loaded", "count", registry.Len())
	return registry, nil
}
