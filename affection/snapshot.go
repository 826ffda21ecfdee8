package affection

import (
	"fmt"
	"log"
	"sort"
)

var stageLabels = map[int]string{
	1: "Stage 1: Small Agi",
	2: "Stage 2: Medium Agi",
	3: "Stage 3: Big Agi",
	4: "Stage 4: Like Giant Agi",
}

// Snapshot is the HUD view of the engine.
type Snapshot struct {
	Hearts        string         `json:"hearts"`
	Affection     string         `json:"affection"`
	Stage         int            `json:"stage"`
	StageLabel    string         `json:"stageLabel"`
	Mood          Mood           `json:"mood"`
	Sprite        string         `json:"sprite"`
	AffectionMult float64        `json:"affectionMult"`
	Inventory     []string       `json:"inventory"`
	Flags         []string       `json:"flags"`
	Buffs         Buffs          `json:"buffs"`
	TrialsPassed  map[int]bool   `json:"trialsPassed"`
	PendingStage  int            `json:"pendingStage,omitempty"`
	EndingSeen    bool           `json:"endingSeen"`
	Cheats        Cheats         `json:"cheats"`
	Arbiter       Arbiter        `json:"arbiter"`
	Modal         *Modal         `json:"modal,omitempty"`
	TrialStates   map[int]string `json:"trialStates"`
	EndingState   string         `json:"endingState"`
	State         State          `json:"-"`
}

func (e *Engine) snapshotLocked() Snapshot {
	st := e.state.clone()
	s := Snapshot{
		Hearts:        st.Hearts.String(),
		Affection:     st.Affection.String(),
		Stage:         st.Stage,
		StageLabel:    stageLabel(st.Stage),
		Mood:          st.Mood,
		Sprite:        e.spriteLocked(),
		AffectionMult: st.AffectionMult,
		Inventory:     append([]string(nil), st.Inventory...),
		Buffs:         st.TimedBuffs,
		TrialsPassed:  st.StageTrialPassed,
		EndingSeen:    st.EndingSeen,
		Cheats:        st.Cheats,
		Arbiter:       e.arbiter,
		TrialStates:   make(map[int]string, len(trialStages)),
		EndingState:   e.ending.Current(),
		State:         st,
	}
	if st.PendingStage != nil {
		s.PendingStage = *st.PendingStage
	}
	for flag, on := range st.Flags {
		if on {
			s.Flags = append(s.Flags, flag)
		}
	}
	sort.Strings(s.Flags)
	for _, stage := range trialStages {
		s.TrialStates[stage] = e.trials[stage].Current()
	}
	if e.modal != nil {
		m := *e.modal
		s.Modal = &m
	}
	return s
}

func stageLabel(stage int) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return fmt.Sprintf("Stage %d", stage)
}

// SpriteFor is the asset identifier for a stage and mood.
func SpriteFor(stage int, mood Mood) string {
	return fmt.Sprintf("stage%d-%s", clampStage(stage), ParseMood(string(mood)))
}

// spriteLocked resolves the current sprite, falling back to the stage's
// neutral image. Empty means neither exists.
func (e *Engine) spriteLocked() string {
	want := SpriteFor(e.state.Stage, e.state.Mood)
	if e.assets == nil || e.assets(want) {
		return want
	}
	neutral := SpriteFor(e.state.Stage, MoodNeutral)
	if e.assets(neutral) {
		log.Printf("[Sprite] missing %s, falling back to %s", want, neutral)
		return neutral
	}
	log.Printf("[Sprite] missing %s and %s", want, neutral)
	return ""
}
