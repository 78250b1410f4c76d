package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden with -ldflags "-X github.com/lazypower/instinct/internal/cli.Version=...".
// Left unset, they fall back to the module and VCS stamps of the binary.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		b := currentBuild()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "instinct %s\n", b.version)
		fmt.Fprintf(out, "  commit: %s\n", b.commit)
		fmt.Fprintf(out, "  built:  %s\n", b.date)
		fmt.Fprintf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

type build struct {
	version, commit, date string
}

// currentBuild prefers ldflags values and fills the rest from debug.BuildInfo.
func currentBuild() build {
	b := build{version: Version, commit: Commit, date: BuildDate}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if b.version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.commit == "unknown" && len(s.Value) >= 12 {
				b.commit = s.Value[:12]
			}
		case "vcs.time":
			if b.date == "unknown" {
				b.date = s.Value
			}
		}
	}
	return b
}

// VersionString is the short form reported by /api/health.
func VersionString() string {
	b := currentBuild()
	return fmt.Sprintf("%s (%s)", b.version, b.commit)
}
