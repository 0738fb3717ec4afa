package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/satoshi-bridge/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bridge status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	configPath := config.GetConfigPath()
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("⚡ satoshi-bridge Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Approval service: %s\n", cfg.Collaborators.ApprovalURL)
	fmt.Printf("Payment service: %s\n", cfg.Collaborators.PaymentURL)

	client := &http.Client{Timeout: 3 * time.Second}
	base := fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port)
	resp, err := client.Get(base + "/status")
	if err != nil {
		fmt.Println("\nBridge: not running")
		return nil
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	fmt.Println("\nBridge: ✓ running")
	fmt.Printf("  State: %v\n", status["state"])
	fmt.Printf("  Uptime: %v\n", status["uptime"])
	fmt.Printf("  Transactions: %v\n", status["transactions"])
	if conns, ok := status["connections"].(map[string]any); ok {
		for role, st := range conns {
			fmt.Printf("  Serial %s: %v\n", role, st)
		}
	}
	return nil
}
