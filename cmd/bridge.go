package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/satoshi-bridge/internal/bus"
	"github.com/dayuer/satoshi-bridge/internal/collab"
	"github.com/dayuer/satoshi-bridge/internal/config"
	"github.com/dayuer/satoshi-bridge/internal/history"
	"github.com/dayuer/satoshi-bridge/internal/orchestrator"
	"github.com/dayuer/satoshi-bridge/internal/profile"
	"github.com/dayuer/satoshi-bridge/internal/serial"
	"github.com/dayuer/satoshi-bridge/internal/server"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Start the bridge (serial devices + collaborators + HTTP API)",
	RunE:  runBridge,
}

var (
	bridgeConfigPath  string
	bridgeTriggerPort string
	bridgeDisplayPort string
	bridgeHTTPPort    int
)

func init() {
	bridgeCmd.Flags().StringVarP(&bridgeConfigPath, "config", "c", "", "Config file path")
	bridgeCmd.Flags().StringVar(&bridgeTriggerPort, "trigger-port", "", "Trigger serial device (overrides config and autodetect)")
	bridgeCmd.Flags().StringVar(&bridgeDisplayPort, "display-port", "", "Display serial device (overrides config and autodetect)")
	bridgeCmd.Flags().IntVarP(&bridgeHTTPPort, "port", "p", 0, "HTTP API port (overrides config)")
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(bridgeConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if bridgeHTTPPort != 0 {
		cfg.HTTP.Port = bridgeHTTPPort
	}
	if v := os.Getenv("BRIDGE_APPROVAL_URL"); v != "" {
		cfg.Collaborators.ApprovalURL = v
	}
	if v := os.Getenv("BRIDGE_PAYMENT_URL"); v != "" {
		cfg.Collaborators.PaymentURL = v
	}
	if v := os.Getenv("BRIDGE_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	profiles, err := profile.Load(cfg.ProfilesFile)
	if err != nil {
		return fmt.Errorf("loading device profiles: %w", err)
	}

	fmt.Printf("⚡ Starting satoshi-bridge on port %d...\n", cfg.HTTP.Port)

	evBus := bus.New(cfg.Bus.Buffer)

	hist := history.NewStore(0)
	if cfg.Redis.URL != "" {
		if hist.EnableRedis(history.RedisConfig{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}) {
			fmt.Println("✓ Redis history cache enabled")
		} else {
			fmt.Println("⚠ Redis unreachable, history is in-memory only")
		}
	}

	mgr := serial.NewManager(evBus)
	trigger := registerPort(mgr, cfg, profiles, profile.RoleTrigger, bridgeTriggerPort, cfg.Serial.Trigger)
	display := registerPort(mgr, cfg, profiles, profile.RoleDisplay, bridgeDisplayPort, cfg.Serial.Display)

	retry := &collab.RetryPolicy{MaxAttempts: cfg.Collaborators.RetryAttempts, Delay: 500 * time.Millisecond}
	if retry.MaxAttempts <= 0 {
		retry = collab.DefaultRetryPolicy()
	}
	approver := collab.NewApprovalClient(cfg.Collaborators.ApprovalURL, retry)
	payer := collab.NewPaymentClient(cfg.Collaborators.PaymentURL, retry)

	orch := orchestrator.New(orchestrator.Config{
		ResolveTimeout: cfg.Collaborators.ResolveTimeout.Std(),
		DisplayWidth:   profiles.DisplayWidth(profile.RoleDisplay),
	}, approver, payer, mgr, evBus, hist)

	srv := server.NewServer(server.ServerConfig{
		Host:    cfg.HTTP.Host,
		Port:    cfg.HTTP.Port,
		Orch:    orch,
		Serial:  mgr,
		History: hist,
		Bus:     evBus,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	mgr.StartAll(ctx)
	go orch.Run(ctx, trigger.Lines(), display.Lines())

	err = srv.Start(ctx)
	mgr.WaitAll()
	return err
}

// registerPort resolves the device path for a role (flag, then config, then
// profile autodetect) and registers the connection with the manager.
func registerPort(mgr *serial.Manager, cfg config.Config, profiles *profile.Set, role, flagPort string, pc config.PortConfig) *serial.Conn {
	port := flagPort
	if port == "" {
		port = pc.Port
	}
	if port == "" {
		if detected, ok := profiles.Detect(role); ok {
			port = detected
			log.Printf("[Bridge] Autodetected %s device at %s", role, port)
		} else {
			log.Printf("[Bridge] No %s device found, will retry on reconnect", role)
		}
	}
	baud := pc.Baud
	if baud == 0 {
		baud = profiles.Baud(role, 115200)
	}
	return mgr.Register(serial.Config{
		Role:              role,
		Port:              port,
		Baud:              baud,
		ReconnectInterval: cfg.Serial.ReconnectInterval.Std(),
	}, serial.TarmDialer)
}
