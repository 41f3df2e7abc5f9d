// Package cmd contains all CLI commands for flixctl
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alt-project/flixctl/internal/app"
	"github.com/alt-project/flixctl/internal/config"
	"github.com/alt-project/flixctl/internal/logger"
	"github.com/alt-project/flixctl/internal/output"
)

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	colorFlag string
	cfg       *config.Config
	log       *slog.Logger
	printer   *output.Printer
	version   = "dev"

	// application is built on first use and shared by every command of one process.
	application *app.App
	inShell     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flixctl",
	Short: "MovieFlix command line client",
	Long: `flixctl browses the MovieFlix catalogue, manages your session and
runs the admin tools against a MovieFlix API.

Example usage:
  flixctl login --email jane@movieflix.dev   # Start a session
  flixctl movies featured                    # Latest, popular and genre rows
  flixctl movies list --search heat          # Search the catalogue
  flixctl movie show 1                       # Details and comments
  flixctl shell                              # Interactive session with a shared cache
  flixctl mock-api                           # Local in-memory API for development`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if inShell {
			return nil
		}
		return initConfig(cmd.Root())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if inShell {
			return nil
		}
		return closeApp()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		// PersistentPostRunE does not run after a failed RunE.
		_ = closeApp()
	}
	return err
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// PrintError writes err to stderr in the CLI error format.
func PrintError(err error) {
	p := printer
	if p == nil {
		p = output.NewPrinter(output.Options{Err: rootCmd.ErrOrStderr()})
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		p.FormatError(cliErr)
		return
	}
	p.FormatError(&output.CLIError{Summary: err.Error()})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .flixctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print results and errors")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "colorize output: auto, always or never")

	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &output.CLIError{Summary: err.Error(), Suggestion: "Run '" + c.CommandPath() + " --help' for usage", ExitCode: output.ExitUsageError}
	})
}

// initConfig loads configuration and builds the logger and printer on root's writers.
func initConfig(root *cobra.Command) error {
	if err := closeApp(); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Run 'flixctl config' to see the effective settings",
			ExitCode:   output.ExitConfigError,
		}
	}

	opts := logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if verbose {
		opts.Level = "debug"
	}
	log, err = logger.New(root.ErrOrStderr(), opts)
	if err != nil {
		return &output.CLIError{Summary: "invalid logging settings", Detail: err.Error(), ExitCode: output.ExitConfigError}
	}

	mode, err := output.ParseColorMode(colorFlag)
	if err != nil {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError}
	}
	printer = output.NewPrinter(output.Options{
		Out:       root.OutOrStdout(),
		Err:       root.ErrOrStderr(),
		UseColors: output.ResolveColors(mode, cfg.Output.Colors),
		Quiet:     quiet,
	})

	log.Debug("configuration loaded",
		"base_url", cfg.API.BaseURL,
		"session_backend", cfg.Session.Backend,
		"cache_ttl", cfg.Cache.TTL,
	)
	return nil
}

// getApp returns the shared app, building it and restoring the stored session on first use.
func getApp(ctx context.Context) (*app.App, error) {
	if application != nil {
		return application, nil
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, toCLIError(nil, err)
	}
	a.Auth.RestoreSession(ctx)
	application = a
	return a, nil
}

func closeApp() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	if err != nil {
		return fmt.Errorf("closing: %w", err)
	}
	return nil
}

// outf writes a result line. Unlike printer.Print it is not silenced by --quiet.
func outf(format string, args ...any) {
	fmt.Fprintf(printer.Out(), format+"\n", args...)
}
