package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/pkg/planner"
)

// These variables are set at build time via ldflags.
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

func versionString() string {
	info := planner.GetVersionInfo()
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", info.Version, commit, BuildTime, info.GoVersion)
}

// VersionCmd prints version information.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bidir %s\n", versionString())
		},
	}
}
