package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultshield/pools/api"
	"github.com/vaultshield/pools/metrics"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.NewLogger(os.Stderr).Error("api server failed", "err", err)
		os.Exit(1)
	}
}

// NewRootCmd returns the gateway command. Every flag can also be set in the
// config file or through a VAULTSHIELD_* environment variable.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "vaultshield-api",
		Short: "VaultShield pool ledger HTTP and WebSocket gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := api.LoadConfig(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			return run(cfg, logger)
		},
	}

	defaults := api.DefaultConfig()
	f := cmd.Flags()
	f.String("config", "", "Path to a config file (yaml, toml or json)")
	f.String("host", defaults.Host, "Server host")
	f.Int("port", defaults.Port, "Server port")
	f.Bool("disable-rate-limit", false, "Disable per-IP rate limiting (benchmarks only)")
	f.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	f.String("ledger.genesis-file", "", "Load the ledger from an exported investpool genesis")
	f.Duration("ledger.block-time", defaults.Ledger.BlockTime, "Interval between ledger blocks")
	f.Bool("oracle.enabled", false, "Enable the confidential oracle")
	f.String("oracle.backend", defaults.Oracle.Backend, "Oracle backend (sealed, elgamal)")
	f.String("oracle.identity", "", "Oracle identity recorded in params")
	_ = v.BindPFlags(f)

	return cmd
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(os.Stdout, log.LevelOption(lvl)), nil
}

func run(cfg *api.Config, logger log.Logger) error {
	server, err := api.NewServer(cfg, metrics.GetCollector(), logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("VaultShield API started",
		"addr", cfg.Addr(),
		"ws", "/ws",
		"metrics", "/metrics",
		"rate_limited", !cfg.DisableRateLimit,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return err
	}

	logger.Info("Server exited")
	return nil
}
