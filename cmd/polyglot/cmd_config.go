package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"polyglot/internal/config"
)

// configCmd groups the learner settings commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change learner settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings and file locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, row := range settingsRows(env) {
			fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
		}
		fmt.Fprintf(out, "Config file: %s\n", env.paths.ConfigFile())
		fmt.Fprintf(out, "Settings file: %s\n", env.manager.Path())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting (" + strings.Join(config.SettingKeys, ", ") + ")",
	Example: `  polyglot config set language urdu
  polyglot config set daily_goal 3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := env.saveSetting(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s set to %s\n", args[0], args[1])
		return nil
	},
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show version information",
	Annotations: map[string]string{"bootstrap": "skip"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", config.AppName, config.Version)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
