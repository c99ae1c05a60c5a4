package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, XP, streak and study totals",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	s := d.Engine.Stats()
	w := out(cmd)

	title := s.Title
	if title == "" {
		title = "-"
	}
	fmt.Fprintf(w, "Account:      %s\n", d.Engine.AccountID())
	fmt.Fprintf(w, "Level:        %d  %s\n", s.Level, levelBar(d.Engine.Progress()))
	if s.PrestigeLevel > 0 {
		fmt.Fprintf(w, "Prestige:     %d\n", s.PrestigeLevel)
	}
	fmt.Fprintf(w, "Title:        %s\n", title)
	fmt.Fprintf(w, "XP:           %d (lifetime %d, this week %d)\n", s.XP, s.TotalXPEarned, s.WeeklyXP)
	fmt.Fprintf(w, "Sessions:     %d (%s total)\n", s.TotalSessions, formatMinutes(s.TotalStudyTimeMinutes))
	fmt.Fprintf(w, "Streak:       %s\n", streakLine(d.Engine.StreakStatus()))
	fmt.Fprintf(w, "Best streak:  %d days\n", s.LongestStreak)
	fmt.Fprintf(w, "Savers:       %d\n", s.StreakSavers)
	fmt.Fprintf(w, "Achievements: %d / %d\n", len(s.Achievements), len(d.Engine.Achievements()))

	if len(s.SubjectMastery) == 0 {
		return nil
	}

	subjects := make([]string, 0, len(s.SubjectMastery))
	for name := range s.SubjectMastery {
		subjects = append(subjects, name)
	}
	sort.Slice(subjects, func(i, j int) bool {
		return s.SubjectMastery[subjects[i]] > s.SubjectMastery[subjects[j]]
	})

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tTIME")
	for _, name := range subjects {
		fmt.Fprintf(tw, "%s\t%s\n", name, formatMinutes(s.SubjectMastery[name]))
	}
	return tw.Flush()
}
