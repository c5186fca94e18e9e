package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"edgeroute/internal/config"
	"edgeroute/internal/eggs"
	"edgeroute/internal/events"
	"edgeroute/internal/storage"
	"edgeroute/internal/terminal"
)

// terminalScope keys the local player's achievements in the sqlite file.
const terminalScope = "terminal"

var konamiCmd = &cobra.Command{
	Use:   "konami",
	Short: "Play the easter eggs in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		eggsCfg, err := eggs.LoadConfig(resolveEggsFile(cmd, cfg.EggsFile))
		if err != nil {
			return fmt.Errorf("loading easter eggs: %w", err)
		}

		var durable storage.Store = storage.NewMemory()
		if path, _ := cmd.Flags().GetString("sqlite"); path != "" {
			lite, err := storage.OpenSQLite(path)
			if err != nil {
				return fmt.Errorf("opening sqlite store: %w", err)
			}
			defer lite.Close()
			durable = storage.Scoped(lite, terminalScope)
		}

		// Log output would tear the screen, so the terminal client stays quiet.
		log := zap.NewNop()

		bus := events.NewBus()
		defer bus.Close()
		engine, err := eggs.New(eggs.Options{
			Config:  eggsCfg,
			Durable: durable,
			Session: storage.NewMemory(),
			Bus:     bus,
			Logger:  log,
		})
		if err != nil {
			return err
		}
		defer engine.Close()

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("creating screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("initialising screen: %w", err)
		}
		defer screen.Fini()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return terminal.New(screen, engine, bus, log).Run(ctx)
	},
}

func init() {
	konamiCmd.Flags().String("sqlite", os.Getenv("SQLITE_PATH"), "SQLite file that keeps unlocked achievements between runs")
}
