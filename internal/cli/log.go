package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyquest/studyquest/internal/domain"
)

func init() {
	logCmd.Flags().StringVar(&logDifficulty, "difficulty", "", "Session difficulty: easy, medium or hard")
	logCmd.Flags().StringVar(&logMood, "mood", "", "How the session felt")
	logCmd.Flags().DurationVar(&logAgo, "ago", 0, "When the session started, relative to now (e.g. 2h)")
	rootCmd.AddCommand(logCmd)
}

var (
	logDifficulty string
	logMood       string
	logAgo        time.Duration
)

var logCmd = &cobra.Command{
	Use:   "log SUBJECT MINUTES",
	Short: "Log a finished study session",
	Long: `Log a finished study session and collect its rewards: XP, streak
progress, quest progress and any achievements it unlocks.`,
	Example: `  studyquest log Biology 45
  studyquest log "Linear Algebra" 90 --difficulty hard`,
	Args: cobra.ExactArgs(2),
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("minutes must be a number: %q", args[1])
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer closeDaemon(d)

	session := domain.StudySession{
		Subject:         args[0],
		DurationMinutes: minutes,
		Difficulty:      logDifficulty,
		Mood:            logMood,
	}
	if logAgo > 0 {
		session.Timestamp = time.Now().Add(-logAgo)
	}

	res, err := d.Engine.CompleteSession(ctx, session)
	if err != nil {
		return err
	}

	w := out(cmd)
	xp := res.XP
	fmt.Fprintf(w, "Logged %s of %s: +%d XP\n", formatMinutes(minutes), session.Subject, xp.TotalXP)
	fmt.Fprintf(w, "  base %d  focus x%.2f  streak +%d", xp.BaseXP, xp.FocusMultiplier, xp.StreakBonus)
	if xp.MasteryBonus > 0 {
		fmt.Fprintf(w, "  mastery +%.0f", xp.MasteryBonus)
	}
	if xp.Variable.BonusXP > 0 {
		fmt.Fprintf(w, "  %s bonus +%d", xp.Variable.Tier, xp.Variable.BonusXP)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Level %d  %s\n", res.Stats.Level, levelBar(d.Engine.Progress()))
	fmt.Fprintf(w, "Streak: %s\n", streakLine(d.Engine.StreakStatus()))

	// The XP line above already covers the session's own grant.
	for {
		ev, ok := d.Engine.Rewards().Next()
		if !ok {
			return nil
		}
		if ev.Type != domain.RewardXPEarned {
			printEvent(w, ev)
		}
	}
}
