package script

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"minyoung-maker/affection"
)

// Tuning is the YAML overlay for affection.Config. Absent keys keep the
// base value.
type Tuning struct {
	Name            string  `yaml:"name"`
	StageThresholds []int64 `yaml:"stage_thresholds"`
	FinalThreshold  *int64  `yaml:"final_threshold"`

	Cooldowns struct {
		DeclineTrial  *time.Duration `yaml:"decline_trial"`
		DeclineEnding *time.Duration `yaml:"decline_ending"`
		FailTrial     *time.Duration `yaml:"fail_trial"`
		Quit          *time.Duration `yaml:"quit"`
	} `yaml:"cooldowns"`

	Idle struct {
		Tick  *time.Duration `yaml:"tick"`
		Sad   *time.Duration `yaml:"sad"`
		Angry *time.Duration `yaml:"angry"`
	} `yaml:"idle"`

	Popups struct {
		Chance        map[string]float64 `yaml:"chance"`
		CooldownSkips *int               `yaml:"cooldown_skips"`
		HomeRoll      *float64           `yaml:"home_roll"`
	} `yaml:"popups"`

	Buffs struct {
		ComfortNeutral *float64 `yaml:"comfort_neutral"`
		ComfortHappy   *float64 `yaml:"comfort_happy"`
		CharmHappy     *float64 `yaml:"charm_happy"`
		ChaosNeutral   *float64 `yaml:"chaos_neutral"`
		ChaosHappy     *float64 `yaml:"chaos_happy"`
		ChaosExtra     *float64 `yaml:"chaos_extra_chance"`
		ChaosExtraRoll *float64 `yaml:"chaos_extra_roll"`
	} `yaml:"buffs"`

	Seed *int64 `yaml:"seed"`
}

// LoadTuning reads a YAML tuning file on top of base.
func LoadTuning(path string, base affection.Config) (affection.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read tuning file: %w", err)
	}
	return ApplyTuning(data, base)
}

func ApplyTuning(data []byte, base affection.Config) (affection.Config, error) {
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return base, fmt.Errorf("parse tuning YAML: %w", err)
	}
	cfg := base
	if t.Name != "" {
		cfg.Name = t.Name
	}
	if len(t.StageThresholds) > 0 {
		if len(t.StageThresholds) != len(cfg.StageThresholds) {
			return base, fmt.Errorf("stage_thresholds needs %d values, got %d", len(cfg.StageThresholds), len(t.StageThresholds))
		}
		copy(cfg.StageThresholds[:], t.StageThresholds)
	}
	setInt64(&cfg.FinalThreshold, t.FinalThreshold)

	setDuration(&cfg.DeclineTrialCooldown, t.Cooldowns.DeclineTrial)
	setDuration(&cfg.DeclineEndingCooldown, t.Cooldowns.DeclineEnding)
	setDuration(&cfg.FailTrialCooldown, t.Cooldowns.FailTrial)
	setDuration(&cfg.QuitCooldown, t.Cooldowns.Quit)
	setDuration(&cfg.IdleTick, t.Idle.Tick)
	setDuration(&cfg.IdleSad, t.Idle.Sad)
	setDuration(&cfg.IdleAngry, t.Idle.Angry)

	if len(t.Popups.Chance) > 0 {
		chance := make(map[affection.PopupContext]float64, len(base.PopupChance))
		for k, v := range base.PopupChance {
			chance[k] = v
		}
		for k, v := range t.Popups.Chance {
			chance[affection.ParsePopupContext(k)] = v
		}
		cfg.PopupChance = chance
	}
	if t.Popups.CooldownSkips != nil {
		cfg.PopupCooldownSkips = *t.Popups.CooldownSkips
	}
	setFloat(&cfg.HomePopupRoll, t.Popups.HomeRoll)

	setFloat(&cfg.Buffs.ComfortNeutral, t.Buffs.ComfortNeutral)
	setFloat(&cfg.Buffs.ComfortHappy, t.Buffs.ComfortHappy)
	setFloat(&cfg.Buffs.CharmHappy, t.Buffs.CharmHappy)
	setFloat(&cfg.Buffs.ChaosNeutral, t.Buffs.ChaosNeutral)
	setFloat(&cfg.Buffs.ChaosHappy, t.Buffs.ChaosHappy)
	setFloat(&cfg.ChaosExtraChance, t.Buffs.ChaosExtra)
	setFloat(&cfg.ChaosExtraChanceRoll, t.Buffs.ChaosExtraRoll)

	setInt64(&cfg.Seed, t.Seed)
	return cfg, nil
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
