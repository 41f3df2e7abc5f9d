package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	commit    = "unknown"
	buildTime = "unknown"
)

// SetBuildInfo records the commit and build time stamped in by the linker.
func SetBuildInfo(c, bt string) {
	commit = c
	buildTime = bt
}

// buildInfo describes the running binary.
type buildInfo struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Built    string `json:"built"`
	Modified bool   `json:"modified,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

// currentBuild falls back to the module's VCS stamp for binaries built with go install.
func currentBuild() buildInfo {
	b := buildInfo{
		Version:  version,
		Commit:   commit,
		Built:    buildTime,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Built == "unknown" {
				b.Built = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the flixctl build",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("short", false, "print the version number alone")
	versionCmd.Flags().Bool("json", false, "output as JSON")
}

func runVersion(cmd *cobra.Command, args []string) error {
	b := currentBuild()

	if short, _ := cmd.Flags().GetBool("short"); short {
		outf("%s", b.Version)
		return nil
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(b)
	}

	rev := b.Commit
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if b.Modified {
		rev += "+dirty"
	}
	outf("flixctl %s (%s)", printer.Bold(b.Version), rev)
	outf("%s", printer.Dim("built "+b.Built+" with "+b.Go+" for "+b.Platform))
	return nil
}
