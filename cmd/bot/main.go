package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xstar_farm/internal/client"
	"xstar_farm/internal/config"
	"xstar_farm/internal/engine"
	"xstar_farm/internal/fingerprint"
	"xstar_farm/internal/httpapi"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
	"xstar_farm/internal/notify"
	"xstar_farm/internal/store/sqlite"
)

var (
	configFile string
	proxyMode  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xstar-farm",
		Short: "Run the xstar farm over every configured account",
		Long: `Runs the full xstar routine (check-in, tasks, mining, pets, speed
upgrades and the reward mini-game) for every account in the accounts file,
in endless cycles, a batch of accounts at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVar(&configFile, "config", "config.yaml", "Path to config file")
	rootCmd.Flags().BoolVar(&proxyMode, "proxy", false, "Route each account through its own proxy")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bus := logbus.New(200, true)
	defer bus.Close()

	lines, err := config.LoadLines(cfg.Files.Accounts)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	accounts := make([]model.Credential, len(lines))
	for i, raw := range lines {
		accounts[i] = model.Credential{Index: i, Raw: raw}
	}

	var proxies []string
	if proxyMode {
		proxies, err = config.LoadLines(cfg.Files.Proxies)
		if err != nil {
			return fmt.Errorf("load proxies: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoints, err := client.CheckBaseURL(ctx, cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("resolve base url: %w", err)
	}
	if endpoints.Message != "" {
		bus.Log("info", endpoints.Message, nil)
	}

	store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer store.Close()

	var notifier notify.Notifier
	if cfg.Email.Enabled {
		email := notify.NewEmail(cfg.Email, bus)
		defer email.Close()
		notifier = email
	}

	eng, err := engine.New(engine.Options{
		Config:       &cfg,
		Accounts:     accounts,
		Proxies:      proxies,
		BaseURL:      endpoints.BaseURL,
		GameBaseURL:  cfg.Endpoint.GameBaseURL,
		Bus:          bus,
		Store:        store,
		Fingerprints: fingerprint.NewManager(store, time.Now().UnixNano()),
		Notifier:     notifier,
	})
	if err != nil {
		return err
	}

	var monitor *httpapi.Server
	if cfg.Server.Addr != "" {
		monitor = httpapi.New(httpapi.Options{
			Cfg:   cfg.Server,
			Bus:   bus,
			State: eng.State,
		})
		go func() {
			if err := monitor.Start(); err != nil {
				bus.Log("error", fmt.Sprintf("Monitor server error: %v", err), nil)
			}
		}()
		bus.Log("info", fmt.Sprintf("Monitor listening on %s", cfg.Server.Addr), nil)
	}

	bus.Log("info", fmt.Sprintf("Loaded %d accounts (proxy mode: %v)", len(accounts), proxyMode), nil)
	err = eng.Run(ctx)

	if monitor != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = monitor.Shutdown(shutdownCtx)
	}
	if err != nil && ctx.Err() != nil {
		bus.Log("info", "Shutdown signal received, stopping...", nil)
		return nil
	}
	return err
}
