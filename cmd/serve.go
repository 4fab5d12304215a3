package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trk/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the issue tracker REST API server",
	Long: "Start an HTTP server exposing the issue CRUD API.\n" +
		"By default it listens on :8000. Use --addr to change it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", ":8000", "address to listen on")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func serveRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	addr := viper.GetString("addr")
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewServer(s, buildVersion).Router(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		ui.Info("Serving API at http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
