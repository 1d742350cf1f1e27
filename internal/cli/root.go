// Package cli implements the partflow command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "partflow",
	Short: "Barcode intake station for parts tracking",
	Long: `PartFlow runs the barcode intake station used by maintenance staff to
record part checkouts, deliveries, and physical counts. It turns raw
HID-scanner keystrokes into a resolved cart and commits the cart against
the inventory service, reporting per-line outcomes.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the partflow version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("partflow %s\n", Version)
	},
}
