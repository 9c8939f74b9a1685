package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/recognition"
	"github.com/rohan1205/NeuraAttend/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the NeuraAttend HTTP API.

The camera page posts frames as base64 data URLs to
POST /api/v1/attendance/mark; every recognized person is marked present once
per day. Records are listed with GET /api/v1/attendance?date=YYYY-MM-DD.

Models and the gallery are loaded before the server starts listening; if any
of them is unavailable the server does not start.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Float64("threshold", 0.9, "Match distance threshold (overrides MATCH_THRESHOLD)")
	serveCmd.Flags().String("gallery", "", "Gallery JSON file (overrides GALLERY_PATH)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, recognition.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	server := web.NewServer(cfg, web.Deps{
		Pipeline: a.pipeline,
		Ledger:   a.ledger,
		Gallery:  a.gallery,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting NeuraAttend API on http://%s\n", cfg.Web.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
