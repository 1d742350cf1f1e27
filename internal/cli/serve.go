package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/partflow-io/partflow/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to config file (default ~/.partflow/config.toml)")
	serveCmd.Flags().String("workflow", "", "Override the configured workflow (checkout, receiving, quickcount)")
	serveCmd.Flags().Int("port", 0, "Override the configured API port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the intake station daemon",
	Long: `Start the station daemon: the local HTTP API the kiosk UI talks to,
the intake pipeline, and the scan journal. The daemon runs until
interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = daemon.DefaultPath()
	}

	cfg, err := daemon.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if wf, _ := cmd.Flags().GetString("workflow"); wf != "" {
		cfg.Workflow = wf
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.API.Port = port
	}

	return daemon.Run(cfg)
}
