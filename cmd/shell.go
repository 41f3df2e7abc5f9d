package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alt-project/flixctl/internal/app"
	"github.com/alt-project/flixctl/internal/auth"
)

// shellInput is the shell's line reader while a shell runs. Prompts read from it
// so that buffered lines are not lost.
var shellInput *bufio.Scanner

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session sharing one cache and one sign-in",
	Long: `Read flixctl commands line by line. All commands share one query cache
and one auth state, so repeated reads are served locally until a mutation
invalidates them.

Examples:
  flixctl shell
  flixctl shell --metrics-addr :9464     # Expose cache metrics for Prometheus
  printf 'movies featured\nmovie show 1\n' | flixctl shell`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)

	shellCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
}

func runShell(cmd *cobra.Command, args []string) error {
	if inShell {
		return usageError("already in a shell")
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		stop := serveMetrics(metricsAddr)
		defer stop()
		printer.Info("Serving metrics on %s/metrics", metricsAddr)
	}

	root := cmd.Root()
	in := bufio.NewScanner(cmd.InOrStdin())
	inShell = true
	shellInput = in
	defer func() {
		inShell = false
		shellInput = nil
	}()

	for {
		if !printer.IsQuiet() {
			fmt.Fprint(cmd.ErrOrStderr(), prompt(a))
		}
		if !in.Scan() {
			break
		}

		line := strings.TrimSpace(in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words, err := shlex.Split(line)
		if err != nil {
			PrintError(usageError(err.Error()))
			continue
		}
		if len(words) == 0 {
			continue
		}

		switch words[0] {
		case "exit", "quit":
			return nil
		case "help":
			printShellHelp(root)
			continue
		}

		if err := dispatch(ctx, root, words); err != nil {
			PrintError(err)
		}
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func prompt(a *app.App) string {
	snap := a.Auth.Snapshot()
	if snap.State == auth.Authenticated {
		return fmt.Sprintf("flixctl (%s)> ", snap.Session.Name)
	}
	return "flixctl> "
}

func printShellHelp(root *cobra.Command) {
	table := printer.NewTable("COMMAND", "DESCRIPTION")
	for _, c := range root.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "shell" || c.Name() == "mock-api" {
			continue
		}
		table.AddRow(c.Name(), c.Short)
	}
	table.AddRow("exit", "Leave the shell")
	_ = table.Render()
}

// dispatch runs one subcommand without re-running the root's config and teardown hooks.
func dispatch(ctx context.Context, root *cobra.Command, words []string) error {
	c, rest, err := root.Find(words)
	if err != nil {
		return usageError(err.Error())
	}
	if c == root || c.Name() == "shell" {
		return usageError(fmt.Sprintf("unknown command %q", words[0]))
	}

	resetFlags(c)
	if err := c.ParseFlags(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return c.Help()
		}
		return usageError(err.Error())
	}
	if c.RunE == nil {
		return c.Help()
	}

	positional := c.Flags().Args()
	if err := c.ValidateArgs(positional); err != nil {
		return usageError(err.Error())
	}
	if err := c.ValidateRequiredFlags(); err != nil {
		return usageError(err.Error())
	}
	if err := c.ValidateFlagGroups(); err != nil {
		return usageError(err.Error())
	}

	c.SetContext(ctx)
	return c.RunE(c, positional)
}

// resetFlags restores local flag defaults left over from the previous line.
func resetFlags(c *cobra.Command) {
	c.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func serveMetrics(addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", "address", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
