package cli

import (
	"fmt"
	"strings"

	"github.com/studyquest/studyquest/internal/domain"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// Renders XP toward the next level and quest completion:
//   [=============>................]  45% | 205 / 450 XP

const barWidth = 30 // Characters for the progress bar

// renderBar draws a fixed-width bar for pct in [0, 100].
func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", filled) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}

// levelBar renders progress toward the next level.
func levelBar(p domain.Progress) string {
	return fmt.Sprintf("%s %3.0f%% | %d / %d XP", renderBar(p.Percentage), p.Percentage, p.Current, p.Needed)
}

// questBar renders a quest's progress against its target.
func questBar(q domain.Quest) string {
	pct := q.ProgressPct()
	if q.Completed {
		pct = 100
	}
	return fmt.Sprintf("%s %3.0f%%", renderBar(pct), pct)
}

// streakLine summarizes a streak status in one line.
func streakLine(s domain.StreakStatus) string {
	switch s.State {
	case domain.StreakNone:
		return "no streak yet, log a session to start one"
	case domain.StreakBroken:
		if s.CanUseSaver {
			return fmt.Sprintf("broken at %d days (run 'studyquest saver' to restore it)", s.CurrentStreak)
		}
		return fmt.Sprintf("broken at %d days", s.CurrentStreak)
	case domain.StreakDanger, domain.StreakWarning:
		return fmt.Sprintf("%d days, %.0fh left today (%s)", s.CurrentStreak, s.HoursLeft, strings.ToLower(string(s.State)))
	}
	return fmt.Sprintf("%d days (%s, x%.1f)", s.CurrentStreak, s.Tier.Label, s.Tier.Multiplier)
}
