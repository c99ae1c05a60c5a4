package engagement_test

import (
	"testing"

	"github.com/studyquest/studyquest/internal/app/engagement"
	"github.com/studyquest/studyquest/internal/domain"
)

func TestDraw_LegendaryOnLowRoll(t *testing.T) {
	gen := engagement.NewGenerator(fixedRand{v: 0.005})

	// 60 minutes against an identical history: performance multiplier 1.0.
	r := gen.Draw(600, 60, []float64{60, 60})
	if r.PerformanceMultiplier != 1.0 {
		t.Fatalf("performance multiplier = %v, want 1.0", r.PerformanceMultiplier)
	}
	if r.Tier != domain.TierLegendary {
		t.Fatalf("tier = %s, want legendary", r.Tier)
	}
	// floor(600 * 5 * 1.0)
	if r.BonusXP != 3000 {
		t.Errorf("bonus = %d, want 3000", r.BonusXP)
	}
	if r.Title == "" {
		t.Error("expected a title for a non-none tier")
	}
}

func TestDraw_LadderBoundaries(t *testing.T) {
	tests := []struct {
		roll float64
		tier domain.RewardTier
		mult float64
	}{
		{0.0, domain.TierLegendary, 5},
		{0.0099, domain.TierLegendary, 5},
		{0.01, domain.TierEpic, 2},
		{0.0499, domain.TierEpic, 2},
		{0.05, domain.TierRare, 1.5},
		{0.1499, domain.TierRare, 1.5},
		{0.15, domain.TierUncommon, 0.5},
		{0.3499, domain.TierUncommon, 0.5},
		{0.35, domain.TierNone, 0},
		{0.99, domain.TierNone, 0},
	}
	for _, tt := range tests {
		gen := engagement.NewGenerator(fixedRand{v: tt.roll})
		// 120 minutes, sessionBonus 2.0; empty history keeps performance at 1.0.
		r := gen.Draw(1000, 120, nil)
		if r.Tier != tt.tier {
			t.Errorf("roll %.4f: tier = %s, want %s", tt.roll, r.Tier, tt.tier)
			continue
		}
		want := int64(1000 * tt.mult * 2.0)
		if r.BonusXP != want {
			t.Errorf("roll %.4f: bonus = %d, want %d", tt.roll, r.BonusXP, want)
		}
	}
}

func TestDraw_NoneHasZeroBonus(t *testing.T) {
	for _, roll := range []float64{0.35, 0.5, 0.75, 0.999} {
		r := engagement.NewGenerator(fixedRand{v: roll}).Draw(5000, 240, []float64{10})
		if r.Tier == domain.TierNone && r.BonusXP != 0 {
			t.Errorf("roll %.3f: none tier with bonus %d", roll, r.BonusXP)
		}
	}
}

func TestDraw_PerformanceScalesLadder(t *testing.T) {
	// 0.4 misses uncommon (0.35) at 1.0 but hits it at 1.5 (0.525).
	gen := engagement.NewGenerator(fixedRand{v: 0.4})

	flat := gen.Draw(300, 30, []float64{30, 30, 30})
	if flat.Tier != domain.TierNone {
		t.Errorf("at average length: tier = %s, want none", flat.Tier)
	}

	better := gen.Draw(300, 45, []float64{30, 30, 30})
	if better.PerformanceMultiplier != 1.5 {
		t.Fatalf("performance multiplier = %v, want 1.5", better.PerformanceMultiplier)
	}
	if better.Tier != domain.TierUncommon {
		t.Errorf("above average: tier = %s, want uncommon", better.Tier)
	}
}

func TestDraw_SessionBonusCapped(t *testing.T) {
	gen := engagement.NewGenerator(fixedRand{v: 0.99})
	if r := gen.Draw(100, 30, nil); r.SessionBonus != 0.5 {
		t.Errorf("30 min session bonus = %v, want 0.5", r.SessionBonus)
	}
	if r := gen.Draw(100, 600, nil); r.SessionBonus != 2.0 {
		t.Errorf("600 min session bonus = %v, want 2.0 (capped)", r.SessionBonus)
	}
}
