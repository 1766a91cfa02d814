// Package cli implements the bidir commands.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/config"
)

var (
	configPath string
	dbPath     string
	noColor    bool
)

// NewRootCmd returns the bidir root command with every subcommand added.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bidir",
		Short: "Bidirectional regression planner",
		Long: `bidir solves finite-domain planning tasks by searching forward from the
initial state and backward from the goal at the same time.

Task files are YAML, JSON or TOML. Settings come from built-in defaults,
the --config file and BIDIR_* environment variables, in increasing order
of precedence.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run archive database (overrides store.path)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(SolveCmd())
	rootCmd.AddCommand(ValidateCmd())
	rootCmd.AddCommand(HistoryCmd())
	rootCmd.AddCommand(VersionCmd())

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	return cfg, nil
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
)

func colorStatus(ok bool, s string) string {
	if ok {
		return color.New(color.FgGreen).Sprint(s)
	}
	return color.New(color.FgRed).Sprint(s)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
