package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "satoshi-bridge",
	Short: "satoshi-bridge — hardware-triggered Lightning payment bridge",
	Long: "satoshi-bridge connects a hardware trigger device and a status display\n" +
		"to agent payment services over serial, relaying payment requests and\n" +
		"pushing outcomes back to both devices.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
