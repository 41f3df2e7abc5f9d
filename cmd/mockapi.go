package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alt-project/flixctl/internal/mockapi"
	"github.com/alt-project/flixctl/internal/output"
)

var mockAPICmd = &cobra.Command{
	Use:   "mock-api",
	Short: "Run an in-memory MovieFlix API for local development",
	Long: `Serve the MovieFlix REST API from memory with a seeded catalogue.

Seeded accounts:
  admin@movieflix.dev / Admin123!   (admin)
  jane@movieflix.dev  / Viewer123!  (standard)

Examples:
  flixctl mock-api                 # Listen on mockapi.addr (default :8080)
  flixctl mock-api --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runMockAPI,
}

func init() {
	rootCmd.AddCommand(mockAPICmd)

	mockAPICmd.Flags().String("addr", "", "listen address (default: mockapi.addr)")
	mockAPICmd.Flags().Duration("token-ttl", time.Hour, "lifetime of issued tokens")
	mockAPICmd.Flags().Bool("empty", false, "start without the seeded catalogue and accounts")
}

func runMockAPI(cmd *cobra.Command, args []string) error {
	if inShell {
		return usageError("mock-api cannot run inside the shell")
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.MockAPI.Addr
	}
	ttl, _ := cmd.Flags().GetDuration("token-ttl")
	empty, _ := cmd.Flags().GetBool("empty")

	srv, err := mockapi.New(mockapi.Config{
		Secret:   cfg.MockAPI.Secret,
		TokenTTL: ttl,
		Seed:     !empty,
	}, log.With("component", "mockapi"))
	if err != nil {
		return &output.CLIError{Summary: "starting mock API", Detail: err.Error(), ExitCode: output.ExitGeneral}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	printer.Success("Mock MovieFlix API listening on %s", addr)
	printer.PrintHints("mock-api")

	select {
	case err := <-errCh:
		if err != nil {
			return &output.CLIError{Summary: "mock API stopped", Detail: err.Error(), ExitCode: output.ExitGeneral}
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	printer.Info("Mock API stopped")
	return nil
}
