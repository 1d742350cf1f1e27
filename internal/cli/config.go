package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/partflow-io/partflow/internal/daemon"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("path", "p", "", "Where to write the config (default ~/.partflow/config.toml)")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage station configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write the default station configuration. Per-workflow scanner
overrides go under [overrides.<workflow>], e.g.:

    [overrides.quickcount]
    cooldown_ms = 2000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = daemon.DefaultPath()
		}
		if err := daemon.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}
