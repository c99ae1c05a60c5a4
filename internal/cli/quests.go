package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyquest/studyquest/internal/domain"
)

func init() {
	questsCmd.Flags().StringVar(&questsRegenerate, "regenerate", "", "Replace a quest set now: daily or weekly")
	rootCmd.AddCommand(questsCmd)
}

var questsRegenerate string

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "List daily and weekly quests",
	Args:  cobra.NoArgs,
	RunE:  runQuests,
}

func runQuests(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	if questsRegenerate != "" {
		if _, err := d.Engine.GenerateQuests(domain.QuestCategory(questsRegenerate)); err != nil {
			return err
		}
	} else {
		d.Engine.RefreshQuests()
	}

	s := d.Engine.Stats()
	w := out(cmd)
	now := time.Now()
	printQuests(w, "Daily", s.DailyQuests, now)
	fmt.Fprintln(w)
	printQuests(w, "Weekly", s.WeeklyQuests, now)
	return nil
}

func printQuests(w io.Writer, heading string, quests []domain.Quest, now time.Time) {
	fmt.Fprintf(w, "%s quests\n", heading)
	if len(quests) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  QUEST\tPROGRESS\tREWARD\tENDS")
	for _, q := range quests {
		ends := q.Deadline.Local().Format("Mon 15:04")
		switch {
		case q.Completed:
			ends = "done"
		case q.IsExpired(now):
			ends = "expired"
		}
		fmt.Fprintf(tw, "  %s\t%s %s\t%d XP\t%s\n",
			q.Name,
			questBar(q),
			questAmount(q),
			q.XP,
			ends,
		)
	}
	tw.Flush()
}

// questAmount renders progress in the quest's own units.
func questAmount(q domain.Quest) string {
	switch q.Type {
	case domain.QuestTime:
		return fmt.Sprintf("%s/%s", formatMinutes(q.Progress), formatMinutes(q.Target))
	default:
		return fmt.Sprintf("%.0f/%.0f", q.Progress, q.Target)
	}
}
