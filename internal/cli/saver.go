package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	saverCmd.Flags().BoolVar(&saverAcceptBreak, "accept-break", false, "Let the broken streak go instead of spending a saver")
	rootCmd.AddCommand(saverCmd)
}

var saverAcceptBreak bool

var saverCmd = &cobra.Command{
	Use:   "saver",
	Short: "Spend a streak saver to restore a broken streak",
	Args:  cobra.NoArgs,
	RunE:  runSaver,
}

func runSaver(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	w := out(cmd)
	if saverAcceptBreak {
		if !d.Engine.AcceptStreakBreak() {
			return fmt.Errorf("streak is not broken")
		}
		fmt.Fprintln(w, "Streak reset. Log a session to start a new one.")
		return nil
	}

	if !d.Engine.UseStreakSaver() {
		return fmt.Errorf("no streak savers available")
	}
	drainRewards(w, d)
	st := d.Engine.StreakStatus()
	fmt.Fprintf(w, "Streak: %s\n", streakLine(st))
	fmt.Fprintf(w, "Savers left: %d\n", st.StreakSavers)
	return nil
}
