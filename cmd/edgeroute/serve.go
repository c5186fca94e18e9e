package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"edgeroute/internal/config"
	"edgeroute/internal/logging"
	"edgeroute/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if p, _ := cmd.Flags().GetString("port"); p != "" {
			cfg.Port = p
		}
		if l, _ := cmd.Flags().GetString("log-level"); l != "" {
			cfg.LogLevel = l
		}
		cfg.EggsFile = resolveEggsFile(cmd, cfg.EggsFile)

		log, err := logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := server.Run(ctx, cfg, log); err != nil {
			log.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
}
