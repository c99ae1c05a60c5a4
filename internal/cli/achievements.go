package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	achievementsCmd.Flags().BoolVar(&achievementsAll, "all", false, "Include locked achievements")
	rootCmd.AddCommand(achievementsCmd)
}

var achievementsAll bool

var achievementsCmd = &cobra.Command{
	Use:     "achievements",
	Aliases: []string{"ach"},
	Short:   "List unlocked achievements",
	Args:    cobra.NoArgs,
	RunE:    runAchievements,
}

func runAchievements(cmd *cobra.Command, args []string) error {
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
	d.Engine.CheckAchievements()
	drainRewards(w, d)

	s := d.Engine.Stats()
	defs := d.Engine.Achievements()
	fmt.Fprintf(w, "%d of %d unlocked\n", len(s.Achievements), len(defs))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tTIER\tXP\tDESCRIPTION")
	for _, def := range defs {
		unlocked := s.HasAchievement(def.ID)
		if !unlocked && !achievementsAll {
			continue
		}
		mark := " "
		if unlocked {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", mark, def.Name, titleCase(string(def.Tier)), def.XP, def.Description)
	}
	return tw.Flush()
}
