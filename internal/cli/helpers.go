package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/studyquest/studyquest/internal/daemon"
	"github.com/studyquest/studyquest/internal/domain"
)

// openDaemon loads the config and opens the store in-process. Unless
// --verbose is set, only warnings reach the terminal.
func openDaemon(ctx context.Context) (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !verbose {
		cfg.Logging.Level = "warn"
	}
	d, err := daemon.NewWithConfig(ctx, cfg, daemon.NewLogger(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("initialize daemon: %w", err)
	}
	return d, nil
}

// closeDaemon flushes every pending write before the process exits.
func closeDaemon(d *daemon.Daemon) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		d.Log.Error().Err(err).Msg("progress may not be fully saved")
	}
}

// drainRewards prints every pending reward event, oldest first, and
// removes it from the queue.
func drainRewards(w io.Writer, d *daemon.Daemon) int {
	n := 0
	for {
		ev, ok := d.Engine.Rewards().Next()
		if !ok {
			return n
		}
		printEvent(w, ev)
		n++
	}
}

func printEvent(w io.Writer, ev domain.RewardEvent) {
	line := fmt.Sprintf("  %s %s", tierBadge(ev.Tier), ev.Title)
	if ev.XP > 0 {
		line += fmt.Sprintf(" (+%d XP)", ev.XP)
	}
	if ev.Message != "" {
		line += ": " + ev.Message
	}
	fmt.Fprintln(w, line)
}

func tierBadge(t domain.RewardTier) string {
	switch t {
	case domain.TierLegendary:
		return "[LEGENDARY]"
	case domain.TierEpic:
		return "[EPIC]"
	case domain.TierRare:
		return "[RARE]"
	case domain.TierUncommon:
		return "[uncommon]"
	case domain.TierCommon:
		return "[common]"
	}
	return "[+]"
}

// formatMinutes renders 135 as "2h15m" and 40 as "40m".
func formatMinutes(m float64) string {
	total := int(m + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	if total%60 == 0 {
		return fmt.Sprintf("%dh", total/60)
	}
	return fmt.Sprintf("%dh%dm", total/60, total%60)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
