package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	prestigeCmd.Flags().BoolVarP(&prestigeYes, "yes", "y", false, "Skip the confirmation check")
	rootCmd.AddCommand(prestigeCmd)
}

var prestigeYes bool

var prestigeCmd = &cobra.Command{
	Use:   "prestige",
	Short: "Reset to level 1 for a permanent XP multiplier (level 100+)",
	Args:  cobra.NoArgs,
	RunE:  runPrestige,
}

func runPrestige(cmd *cobra.Command, args []string) error {
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
	before := d.Engine.Stats()
	if !prestigeYes {
		fmt.Fprintf(w, "Level %d. Prestige resets XP and level; run again with --yes to confirm.\n", before.Level)
		return nil
	}

	if !d.Engine.Prestige() {
		return fmt.Errorf("prestige requires level 100 (currently level %d)", before.Level)
	}
	drainRewards(w, d)
	after := d.Engine.Stats()
	fmt.Fprintf(w, "Prestige %d reached. Back to level %d.\n", after.PrestigeLevel, after.Level)
	return nil
}
