package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "shollu-partner/internal"
	"shollu-partner/internal/config"
	"shollu-partner/internal/storage"
	"shollu-partner/web"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the partner center web server",
	Run: func(cmd *cobra.Command, args []string) {
		initLogger(cfg)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := ServerMain(ctx, cfg); err != nil {
			slog.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	},
}

func ServerMain(ctx context.Context, cfg *config.Config) error {
	var provider storage.Provider
	if cfg.SessionStore == config.SessionStoreSQL {
		provider = openProvider()
		defer provider.Close()
	}

	partner, err := app.New(ctx, cfg, provider, web.FS)
	if err != nil {
		return err
	}
	defer partner.Close()

	slog.Info("Starting partner center",
		"backend", cfg.Backend.Mode,
		"session_store", cfg.SessionStore,
		"scanner", cfg.Scanner.Backend,
		"pipeline", cfg.Cards.Pipeline)

	if err := partner.Run(ctx, cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
