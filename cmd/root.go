// Package cmd assembles the gallery-migrate command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/gallery-migrate/cmd/check"
	"github.com/tphakala/gallery-migrate/cmd/reset"
	"github.com/tphakala/gallery-migrate/cmd/run"
	"github.com/tphakala/gallery-migrate/cmd/skipped"
	"github.com/tphakala/gallery-migrate/cmd/status"
	"github.com/tphakala/gallery-migrate/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(rt *app.Runtime) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "gallery-migrate",
		Short:         "Migrate a 4images gallery in resumable, time-boxed slices",
		Version:       rt.Build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml")
	if err := setupFlags(rootCmd); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		run.Command(rt),
		check.Command(rt),
		status.Command(rt),
		reset.Command(rt),
		skipped.Command(rt),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rt.Init(configFile)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface and
// binds them to their configuration keys.
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("name", "", "Migration name (default from config)")
	flags.Duration("budget", 0, "Time budget of one slice, e.g. 25s (default from config)")
	flags.String("integrity-policy", "", "What to do with rows whose parent is missing: skip or abort")

	bindings := map[string]string{
		"debug":                     "debug",
		"migration.name":            "name",
		"migration.timebudget":      "budget",
		"migration.integritypolicy": "integrity-policy",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
