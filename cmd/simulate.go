package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/satoshi-bridge/internal/config"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Inject a synthetic trigger event into a running bridge",
	RunE:  runSimulate,
}

var (
	simFrom    string
	simTo      string
	simAmount  float64
	simEmotion string
)

func init() {
	simulateCmd.Flags().StringVar(&simFrom, "from", "simulator", "Sending agent id")
	simulateCmd.Flags().StringVar(&simTo, "to", "agent_b", "Receiving agent id")
	simulateCmd.Flags().Float64VarP(&simAmount, "amount", "a", 1, "Payment amount in sats")
	simulateCmd.Flags().StringVarP(&simEmotion, "emotion", "e", "", "Optional emotion context")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	body, _ := json.Marshal(map[string]any{
		"fromAgent": simFrom,
		"toAgent":   simTo,
		"amount":    simAmount,
		"emotion":   simEmotion,
	})

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("http://localhost:%d/simulate", cfg.HTTP.Port)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge rejected trigger: %s", result["error"])
	}

	fmt.Printf("✓ Trigger injected: %s → %s, %.0f sats\n", simFrom, simTo, simAmount)
	fmt.Printf("  Correlation: %s\n", result["correlationId"])
	return nil
}
