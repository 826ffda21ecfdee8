package affection

import (
	"fmt"
	"time"
)

type Config struct {
	// Character name used in dialogue lines.
	Name string

	// Affection needed to desire stages 2, 3 and 4 (index 0 => stage 2).
	StageThresholds [3]int64
	// Affection needed (with the stage 4 trial passed) to offer the ending.
	FinalThreshold int64

	// Wall-clock cooldowns applied to trial/ending entry prompts.
	DeclineTrialCooldown  time.Duration
	DeclineEndingCooldown time.Duration
	FailTrialCooldown     time.Duration
	QuitCooldown          time.Duration

	// Idle decay.
	IdleTick  time.Duration
	IdleSad   time.Duration
	IdleAngry time.Duration

	// Random events: base chance per context and the number of
	// opportunities skipped after a popup fires.
	PopupChance          map[PopupContext]float64
	PopupCooldownSkips   int
	ChaosExtraChance     float64
	ChaosExtraChanceRoll float64

	// Chance that a session start rolls a home popup at all.
	HomePopupRoll float64

	Buffs BuffTuning

	// RNG seed (0 => time-based)
	Seed int64
}

// BuffTuning holds the mood reroll odds of the three timed buffs.
type BuffTuning struct {
	ComfortNeutral float64
	ComfortHappy   float64
	CharmHappy     float64
	ChaosNeutral   float64
	ChaosHappy     float64
}

func DefaultConfig() Config {
	return Config{
		Name:                  "Minyoung",
		StageThresholds:       [3]int64{500, 1000, 2000},
		FinalThreshold:        3000,
		DeclineTrialCooldown:  10 * time.Second,
		DeclineEndingCooldown: 12 * time.Second,
		FailTrialCooldown:     6 * time.Second,
		QuitCooldown:          4 * time.Second,
		IdleTick:              500 * time.Millisecond,
		IdleSad:               30 * time.Second,
		IdleAngry:             60 * time.Second,
		PopupChance: map[PopupContext]float64{
			PopupAny:       0.25,
			PopupHome:      0.25,
			PopupAfterGame: 0.55,
			PopupAfterGift: 0.35,
		},
		PopupCooldownSkips:   2,
		ChaosExtraChance:     0.12,
		ChaosExtraChanceRoll: 0.25,
		HomePopupRoll:        0.25,
		Buffs: BuffTuning{
			ComfortNeutral: 0.55,
			ComfortHappy:   0.35,
			CharmHappy:     0.30,
			ChaosNeutral:   0.40,
			ChaosHappy:     0.20,
		},
	}
}

func (c Config) validate() error {
	prev := int64(0)
	for i, t := range c.StageThresholds {
		if t <= prev {
			return fmt.Errorf("stage %d threshold must be > %d, got %d", i+2, prev, t)
		}
		prev = t
	}
	if c.FinalThreshold < prev {
		return fmt.Errorf("final threshold %d below stage 4 threshold %d", c.FinalThreshold, prev)
	}
	if c.DeclineTrialCooldown < 0 || c.DeclineEndingCooldown < 0 || c.FailTrialCooldown < 0 || c.QuitCooldown < 0 {
		return fmt.Errorf("cooldowns must be >= 0")
	}
	if c.IdleTick <= 0 {
		return fmt.Errorf("IdleTick must be > 0")
	}
	if c.IdleSad <= 0 || c.IdleAngry <= c.IdleSad {
		return fmt.Errorf("invalid idle thresholds: sad=%s angry=%s", c.IdleSad, c.IdleAngry)
	}
	for ctx, p := range c.PopupChance {
		if p < 0 || p > 1 {
			return fmt.Errorf("popup chance for %q out of range: %v", ctx, p)
		}
	}
	if c.HomePopupRoll < 0 || c.HomePopupRoll > 1 {
		return fmt.Errorf("HomePopupRoll out of range: %v", c.HomePopupRoll)
	}
	if c.PopupCooldownSkips < 0 {
		return fmt.Errorf("PopupCooldownSkips must be >= 0")
	}
	return nil
}

func (c Config) stageThreshold(stage int) int64 {
	return c.StageThresholds[stage-2]
}

func (c Config) popupChance(ctx PopupContext) float64 {
	if p, ok := c.PopupChance[ctx]; ok {
		return p
	}
	return c.PopupChance[PopupAny]
}
