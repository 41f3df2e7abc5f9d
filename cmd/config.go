package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Display the effective flixctl configuration after the config file,
.env and FLIXCTL_* environment variables are applied.

Examples:
  flixctl config                # Show all settings
  flixctl config --path         # Show config file path
  flixctl config --json         # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("path", false, "show config file path")
	configCmd.Flags().Bool("json", false, "output as JSON")
}

func runConfig(cmd *cobra.Command, args []string) error {
	showPath, _ := cmd.Flags().GetBool("path")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if showPath {
		if cfg.File == "" {
			printer.Info("No config file found (using defaults)")
		} else {
			outf("%s", cfg.File)
		}
		return nil
	}

	if jsonOutput {
		return writeJSON(cfg)
	}

	printer.Header("Current Configuration")

	table := printer.NewTable("KEY", "VALUE")
	table.AddRow("api.base_url", cfg.API.BaseURL)
	table.AddRow("api.timeout", cfg.API.Timeout.String())
	table.AddRow("api.rate_limit", strconv.FormatFloat(cfg.API.RateLimit, 'g', -1, 64))
	table.AddRow("api.burst", strconv.Itoa(cfg.API.Burst))
	table.AddRow("session.backend", cfg.Session.Backend)
	table.AddRow("session.path", cfg.Session.Path)
	table.AddRow("session.redis_addr", cfg.Session.RedisAddr)
	table.AddRow("session.redis_key_prefix", cfg.Session.RedisKeyPrefix)
	table.AddRow("session.expiry_margin", cfg.Session.ExpiryMargin.String())
	table.AddRow("cache.ttl", cfg.Cache.TTL.String())
	table.AddRow("cache.max_entries", strconv.Itoa(cfg.Cache.MaxEntries))
	table.AddRow("auth.discard_stale_resolutions", fmt.Sprintf("%v", cfg.Auth.DiscardStaleResolutions))
	table.AddRow("logging.level", cfg.Logging.Level)
	table.AddRow("logging.format", cfg.Logging.Format)
	table.AddRow("output.colors", fmt.Sprintf("%v", cfg.Output.Colors))
	table.AddRow("mockapi.addr", cfg.MockAPI.Addr)
	return table.Render()
}
