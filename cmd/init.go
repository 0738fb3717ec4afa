package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dayuer/satoshi-bridge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize bridge configuration",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
	} else {
		os.MkdirAll(filepath.Dir(configPath), 0755)
		if err := config.Save(config.DefaultConfig(), ""); err != nil {
			return fmt.Errorf("creating config: %w", err)
		}
		fmt.Printf("✓ Created config at %s\n", configPath)
	}

	profilesPath := filepath.Join(filepath.Dir(configPath), "profiles.yaml")
	if _, err := os.Stat(profilesPath); os.IsNotExist(err) {
		template := "# Device profiles. Entries here take priority over the built-in defaults.\n" +
			"#\n" +
			"# - name: my-trigger\n" +
			"#   role: trigger\n" +
			"#   match: [\"usb-FTDI\"]\n" +
			"#   baud: 115200\n" +
			"# - name: my-display\n" +
			"#   role: display\n" +
			"#   match: [\"usb-Espressif\"]\n" +
			"#   displayWidth: 20\n"
		if err := os.WriteFile(profilesPath, []byte(template), 0644); err != nil {
			return fmt.Errorf("creating profiles file: %w", err)
		}
		fmt.Printf("✓ Created device profiles at %s\n", profilesPath)
	}

	fmt.Println("\n⚡ satoshi-bridge is ready!")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point approvalUrl and paymentUrl at your agent services")
	fmt.Println("  2. Plug in the trigger and display devices")
	fmt.Println("  3. Run: satoshi-bridge bridge")
	return nil
}
