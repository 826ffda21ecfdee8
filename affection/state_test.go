package affection

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDecodeState_BackfillsAndNormalizes(t *testing.T) {
	now := time.Unix(1700000000, 0)
	raw := []byte(`{
		"hearts": 12,
		"affection": 640.4,
		"stage": 9,
		"mood": "grumpy",
		"buffKoreanFeast": 4,
		"buffGoofyNate": 2,
		"stageTrialPassed": {"2": true},
		"pendingStage": 7
	}`)
	st, err := DecodeState(raw, now)
	if err != nil {
		t.Fatalf("DecodeState err: %v", err)
	}
	if st.Stage != 4 || st.Mood != MoodNeutral {
		t.Fatalf("expected clamped stage and neutral mood, got %d %s", st.Stage, st.Mood)
	}
	if st.Affection != Finite(640) || st.Hearts != Finite(12) {
		t.Fatalf("unexpected currencies %v %v", st.Hearts, st.Affection)
	}
	if st.TimedBuffs != (Buffs{Comfort: 4, Charm: 2}) {
		t.Fatalf("expected legacy buffs folded in, got %+v", st.TimedBuffs)
	}
	if !st.StageTrialPassed[2] || st.StageTrialPassed[3] || len(st.StageTrialPassed) != 3 {
		t.Fatalf("unexpected trial map %v", st.StageTrialPassed)
	}
	if st.PendingStage != nil {
		t.Fatalf("expected invalid pending stage dropped")
	}
	if st.AffectionMult != 1.0 || st.Flags == nil || st.Inventory == nil {
		t.Fatalf("expected defaults back-filled: %+v", st)
	}
	if st.LastActionAt != now.UnixMilli() {
		t.Fatalf("expected lastActionAt defaulted to now")
	}
}

func TestDecodeState_CorruptReturnsDefaults(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st, err := DecodeState([]byte(`{"hearts": [`), now)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if st.Stage != 1 || st.Hearts != Finite(0) || st.Mood != MoodNeutral {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestDecodeState_BadMoodAndStageKeepProgress(t *testing.T) {
	now := time.Unix(1700000000, 0)
	for _, raw := range []string{
		`{"hearts":900,"affection":1200,"stage":2,"mood":7,"stageTrialPassed":{"2":true},"endingSeen":true}`,
		`{"hearts":900,"affection":1200,"stage":"2","mood":"happy","stageTrialPassed":{"2":true},"endingSeen":true}`,
		`{"hearts":900,"affection":1200,"stage":2.0,"mood":null,"stageTrialPassed":{"2":true},"endingSeen":true}`,
	} {
		st, err := DecodeState([]byte(raw), now)
		if err != nil {
			t.Fatalf("DecodeState(%s) err: %v", raw, err)
		}
		if st.Hearts != Finite(900) || st.Affection != Finite(1200) {
			t.Fatalf("currencies lost for %s: %v %v", raw, st.Hearts, st.Affection)
		}
		if st.Stage != 2 || !st.StageTrialPassed[2] || !st.EndingSeen {
			t.Fatalf("progress lost for %s: %+v", raw, st)
		}
		if st.Mood != MoodNeutral && st.Mood != MoodHappy {
			t.Fatalf("unexpected mood %q for %s", st.Mood, raw)
		}
	}
}

func TestDecodeState_BadFieldKeepsTheRest(t *testing.T) {
	now := time.Unix(1700000000, 0)
	st, err := DecodeState([]byte(`{"hearts":40,"flags":5,"stageTrialPassed":{"2":true,"3":true},"stage":3}`), now)
	if err == nil || !strings.Contains(err.Error(), "flags") {
		t.Fatalf("expected an error naming flags, got %v", err)
	}
	if st.Hearts != Finite(40) || st.Stage != 3 || !st.StageTrialPassed[3] {
		t.Fatalf("expected good fields kept, got %+v", st)
	}
	if st.Flags == nil || len(st.Flags) != 0 {
		t.Fatalf("expected empty default flags, got %v", st.Flags)
	}
}

func TestDecodeState_CheatsForceUnbounded(t *testing.T) {
	st, err := DecodeState([]byte(`{"hearts": 5, "cheats": {"unlimitedHearts": true}}`), time.Now())
	if err != nil {
		t.Fatalf("DecodeState err: %v", err)
	}
	if !st.Hearts.IsUnbounded() {
		t.Fatalf("expected unbounded hearts")
	}
	data, err := st.Encode()
	if err != nil {
		t.Fatalf("Encode err: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["hearts"] != "inf" {
		t.Fatalf("expected hearts stored as \"inf\", got %v", raw["hearts"])
	}
}

func TestCreditAffection_RoundsOnce(t *testing.T) {
	cases := []struct {
		delta int64
		mult  float64
		want  int64
	}{
		{3, 1.1, 3},
		{5, 1.1, 6},
		{75, 1.1, 83},
		{-2, 1.1, -2},
		{-5, 1.1, -5},
		{40, 1.0, 40},
		{7, 0, 7},
	}
	for _, c := range cases {
		if got := creditAffection(c.delta, c.mult); got != c.want {
			t.Fatalf("creditAffection(%d, %v) = %d, want %d", c.delta, c.mult, got, c.want)
		}
	}
}

func TestAmount_DisplayNeverNegative(t *testing.T) {
	if got := Finite(-40).String(); got != "0" {
		t.Fatalf("expected 0, got %s", got)
	}
	if got := Unbounded().Add(-1000).String(); got != "∞" {
		t.Fatalf("expected ∞, got %s", got)
	}
	if !Unbounded().Covers(1 << 40) {
		t.Fatalf("unbounded must cover any cost")
	}
}

func TestAffinity_LeaderTieBreak(t *testing.T) {
	cases := []struct {
		a    Affinity
		want Path
	}{
		{Affinity{}, PathDevotion},
		{Affinity{Cozy: 2, Chaos: 2}, PathCozy},
		{Affinity{Cozy: 2, Chaos: 2, Devotion: 2}, PathDevotion},
		{Affinity{Chaos: 3, Cozy: 2}, PathChaos},
		{Affinity{Chaos: 1, Devotion: 1}, PathDevotion},
	}
	for _, c := range cases {
		if got := c.a.Leader(); got != c.want {
			t.Fatalf("%+v: expected %s, got %s", c.a, c.want, got)
		}
	}
}

func TestEndingScript_ValidateCatchesDanglingLink(t *testing.T) {
	s := testCatalog().Ending
	s.Scenes[0].Choices[0].Next = "nowhere"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected a dangling link error")
	}
}
