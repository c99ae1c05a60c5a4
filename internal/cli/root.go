// Package cli implements the studyquest command-line interface using Cobra.
// Commands open the local data store in-process; serve exposes the same
// engine over HTTP.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studyquest",
	Short: "studyquest — level up your study habit",
	Long: `studyquest turns study sessions into progress.
Log a session to earn XP, keep your streak alive, finish daily and weekly
quests, and unlock achievements.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// out is where commands print; tests swap it.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
