package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rewardsCmd.Flags().IntVarP(&rewardsLimit, "limit", "n", 10, "Number of sessions to show")
	rootCmd.AddCommand(rewardsCmd)
}

var rewardsLimit int

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Show XP earned by recent sessions",
	Long: `Show recent sessions from the session log with the XP each earned and
any bonus reward it rolled. Achievements that became due since the last
run are unlocked and shown first.`,
	Args: cobra.NoArgs,
	RunE: runRewards,
}

func runRewards(cmd *cobra.Command, args []string) error {
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
	if n := drainRewards(w, d); n > 0 {
		fmt.Fprintln(w)
	}

	records, err := d.Store.ListSessions(ctx, d.Engine.AccountID(), rewardsLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No sessions logged yet. Run 'studyquest log <subject> <minutes>' to get started.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSUBJECT\tTIME\tXP\tBONUS")
	for _, r := range records {
		bonus := "-"
		if v := r.Bonuses.Variable; v.BonusXP > 0 {
			bonus = fmt.Sprintf("%s +%d", v.Tier, v.BonusXP)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.Session.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Session.Subject,
			formatMinutes(r.Session.DurationMinutes),
			r.XPEarned,
			bonus,
		)
	}
	return tw.Flush()
}
