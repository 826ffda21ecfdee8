package affection

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SnapshotKey is the storage key the progression snapshot is saved under.
const SnapshotKey = "minyoungMakerSave_v3"

// Buffs are the three timed buff counters. Each counts popups, not ticks.
type Buffs struct {
	Comfort int `json:"comfort"`
	Chaos   int `json:"chaos"`
	Charm   int `json:"charm"`
}

func (b Buffs) any() bool { return b.Comfort > 0 || b.Chaos > 0 || b.Charm > 0 }

func (b *Buffs) tick() {
	if b.Comfort > 0 {
		b.Comfort--
	}
	if b.Chaos > 0 {
		b.Chaos--
	}
	if b.Charm > 0 {
		b.Charm--
	}
}

// merge keeps the larger remaining count per buff.
func (b *Buffs) merge(grant Buffs) {
	b.Comfort = max(b.Comfort, grant.Comfort)
	b.Chaos = max(b.Chaos, grant.Chaos)
	b.Charm = max(b.Charm, grant.Charm)
}

type Cheats struct {
	UnlimitedHearts    bool `json:"unlimitedHearts"`
	UnlimitedAffection bool `json:"unlimitedAffection"`
}

// State is the persisted progression aggregate. It is written as one JSON
// object; fields missing from older snapshots keep their defaults.
type State struct {
	Hearts             Amount          `json:"hearts"`
	Affection          Amount          `json:"affection"`
	Stage              int             `json:"stage"`
	Mood               Mood            `json:"mood"`
	AffectionMult      float64         `json:"affectionMult"`
	Flags              map[string]bool `json:"flags"`
	Inventory          []string        `json:"inventory"`
	TimedBuffs         Buffs           `json:"timedBuffs"`
	PopupCooldown      int             `json:"popupCooldown"`
	StageTrialPassed   map[int]bool    `json:"stageTrialPassed"`
	PendingStage       *int            `json:"pendingStage"`
	TrialCooldownUntil int64           `json:"trialCooldownUntil"` // unix ms
	EndingSeen         bool            `json:"endingSeen"`
	Cheats             Cheats          `json:"cheats"`
	LastActionAt       int64           `json:"lastActionAt"` // unix ms
}

// legacyBuffs are the flat buff fields written by v3 saves before
// timedBuffs existed.
type legacyBuffs struct {
	KoreanFeast  *int `json:"buffKoreanFeast"`
	TornadoFudge *int `json:"buffTornadoFudge"`
	GoofyNate    *int `json:"buffGoofyNate"`
}

func DefaultState(now time.Time) State {
	return State{
		Hearts:           Finite(0),
		Affection:        Finite(0),
		Stage:            MinStage,
		Mood:             MoodNeutral,
		AffectionMult:    1.0,
		Flags:            map[string]bool{},
		Inventory:        []string{},
		StageTrialPassed: map[int]bool{2: false, 3: false, 4: false},
		LastActionAt:     now.UnixMilli(),
	}
}

// DecodeState parses a snapshot on top of the defaults. A nil or empty
// snapshot is a fresh start. Input that is not a JSON object returns the
// defaults and the parse error. Otherwise each field is decoded on its
// own: stage and mood are coerced, and any other field that fails keeps
// its default and is named in the returned error.
func DecodeState(data []byte, now time.Time) (State, error) {
	st := DefaultState(now)
	if len(data) == 0 {
		return st, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return DefaultState(now), err
	}

	var bad []string
	for key, raw := range fields {
		switch key {
		case "stage":
			st.Stage = lenientStage(raw, st.Stage)
			continue
		case "mood":
			st.Mood = lenientMood(raw)
			continue
		}
		one, err := json.Marshal(map[string]json.RawMessage{key: raw})
		if err != nil {
			bad = append(bad, key)
			continue
		}
		if err := json.Unmarshal(one, &st); err != nil {
			bad = append(bad, key)
		}
	}

	var legacy legacyBuffs
	if err := json.Unmarshal(data, &legacy); err == nil {
		var grant Buffs
		if legacy.KoreanFeast != nil {
			grant.Comfort = *legacy.KoreanFeast
		}
		if legacy.TornadoFudge != nil {
			grant.Chaos = *legacy.TornadoFudge
		}
		if legacy.GoofyNate != nil {
			grant.Charm = *legacy.GoofyNate
		}
		st.TimedBuffs.merge(grant)
	}
	st.normalize(now)

	if len(bad) > 0 {
		sort.Strings(bad)
		return st, fmt.Errorf("snapshot fields reset to defaults: %s", strings.Join(bad, ", "))
	}
	return st, nil
}

// lenientStage accepts 2, 2.0 and "2". Anything else keeps fallback.
func lenientStage(raw json.RawMessage, fallback int) int {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fallback
		}
		return clampStage(int(math.Round(n)))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fallback
		}
		return clampStage(int(math.Round(f)))
	}
	return fallback
}

func lenientMood(raw json.RawMessage) Mood {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return MoodNeutral
	}
	return ParseMood(s)
}

func (s State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func (s *State) normalize(now time.Time) {
	s.Stage = clampStage(s.Stage)
	s.Mood = ParseMood(string(s.Mood))
	if s.AffectionMult <= 0 || math.IsNaN(s.AffectionMult) || math.IsInf(s.AffectionMult, 0) {
		s.AffectionMult = 1.0
	}
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	if s.Inventory == nil {
		s.Inventory = []string{}
	}
	s.TimedBuffs.Comfort = max(s.TimedBuffs.Comfort, 0)
	s.TimedBuffs.Chaos = max(s.TimedBuffs.Chaos, 0)
	s.TimedBuffs.Charm = max(s.TimedBuffs.Charm, 0)
	s.PopupCooldown = max(s.PopupCooldown, 0)

	passed := make(map[int]bool, len(trialStages))
	for _, stage := range trialStages {
		passed[stage] = s.StageTrialPassed[stage]
	}
	s.StageTrialPassed = passed

	if s.PendingStage != nil && (*s.PendingStage < 2 || *s.PendingStage > MaxStage) {
		s.PendingStage = nil
	}
	if s.TrialCooldownUntil < 0 {
		s.TrialCooldownUntil = 0
	}
	if s.LastActionAt <= 0 {
		s.LastActionAt = now.UnixMilli()
	}
	s.enforceCheats()
}

func (s *State) enforceCheats() {
	if s.Cheats.UnlimitedHearts {
		s.Hearts = Unbounded()
	}
	if s.Cheats.UnlimitedAffection {
		s.Affection = Unbounded()
	}
}

func (s State) owns(name string) bool {
	for _, item := range s.Inventory {
		if item == name {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := s
	out.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	out.Inventory = append([]string(nil), s.Inventory...)
	out.StageTrialPassed = make(map[int]bool, len(s.StageTrialPassed))
	for k, v := range s.StageTrialPassed {
		out.StageTrialPassed[k] = v
	}
	if s.PendingStage != nil {
		p := *s.PendingStage
		out.PendingStage = &p
	}
	return out
}
