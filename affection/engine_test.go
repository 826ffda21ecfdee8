package affection

import (
	"errors"
	"testing"
	"time"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.HomePopupRoll = 0
	cfg.PopupChance = map[PopupContext]float64{PopupAny: 0}
	return cfg
}

func testCatalog() Catalog {
	return Catalog{
		Popups: []Popup{{
			ID:    "fridge",
			Title: "A tiny decision appears…",
			Text:  "She is staring at the fridge.",
			Options: []PopupOption{
				{Label: "Rearrange it", Mood: MoodHappy, Hearts: 2, Affection: 3},
				{Label: "Leave for Cancun", Mood: MoodAngry, Hearts: -100, Affection: -100},
			},
		}},
		Ending: EndingScript{
			Start: "intro",
			Scenes: []EndingScene{
				{ID: "intro", Text: "So… what are we doing?", Choices: []EndingChoice{
					{Label: "Show her", Affinity: Affinity{Devotion: 3}, Next: "close"},
					{Label: "Sit with her", Affinity: Affinity{Cozy: 3}, Next: "close"},
				}},
				{ID: "close", Text: "She leans in.", Choices: []EndingChoice{
					{Label: "Hold her hand", Affinity: Affinity{Chaos: 1}},
				}},
			},
			Variants: []EndingVariant{
				{Path: PathDevotion, Title: "Soulmates", Hearts: 50, Affection: 100},
				{Path: PathCozy, Title: "Quiet Cozy", Hearts: 40, Affection: 80},
				{Path: PathChaos, Title: "Chaos Cute", Hearts: 30, Affection: 60},
			},
		},
	}
}

type harness struct {
	e      *Engine
	clock  *testClock
	store  *MemoryStore
	events []Event
}

// newHarness builds an engine over a saved state. edit may adjust the
// fresh default state before it is saved.
func newHarness(t *testing.T, cfg Config, edit func(*State)) *harness {
	t.Helper()
	h := &harness{clock: &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}}
	st := DefaultState(h.clock.Now())
	if edit != nil {
		edit(&st)
	}
	data, err := st.Encode()
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	h.store = NewMemoryStore(data)
	e, err := NewEngine(cfg, h.store, testCatalog(),
		WithClock(h.clock.Now),
		WithNotifier(func(ev Event) { h.events = append(h.events, ev) }),
	)
	if err != nil {
		t.Fatalf("NewEngine err: %v", err)
	}
	h.e = e
	return h
}

func (h *harness) modal(t *testing.T) Modal {
	t.Helper()
	m, ok := h.e.Modal()
	if !ok {
		t.Fatalf("expected an open modal")
	}
	return m
}

func (h *harness) noModal(t *testing.T) {
	t.Helper()
	if m, ok := h.e.Modal(); ok {
		t.Fatalf("expected no modal, got %s %q", m.Kind, m.Title)
	}
}

func (h *harness) saw(kind EventKind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestNewEngine_InvalidConfigRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StageThresholds = [3]int64{500, 400, 2000}
	if _, err := NewEngine(cfg, nil, testCatalog()); err == nil {
		t.Fatalf("expected threshold validation error")
	}
}

func TestNewEngine_CorruptSnapshotStartsFresh(t *testing.T) {
	store := NewMemoryStore([]byte("{{not json"))
	e, err := NewEngine(testConfig(), store, testCatalog())
	if err != nil {
		t.Fatalf("NewEngine err: %v", err)
	}
	snap := e.Snapshot()
	if snap.Stage != 1 || snap.Hearts != "0" || snap.Affection != "0" || snap.Mood != MoodNeutral {
		t.Fatalf("expected default state, got %+v", snap)
	}
}

type failingStore struct {
	saves int
}

func (s *failingStore) LoadSnapshot() ([]byte, error) { return nil, errors.New("db timeout") }

func (s *failingStore) SaveSnapshot([]byte) error {
	s.saves++
	return nil
}

func TestNewEngine_LoadErrorNeverOverwritesSave(t *testing.T) {
	store := &failingStore{}
	if _, err := NewEngine(testConfig(), store, testCatalog()); err == nil {
		t.Fatalf("expected load error from NewEngine")
	}
	if store.saves != 0 {
		t.Fatalf("expected no saves after a failed load, got %d", store.saves)
	}
}

func TestRecomputeStage_Stage2Threshold_OffersTrialOnce(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.RecomputeStage()

	snap := h.e.Snapshot()
	if snap.Stage != 1 {
		t.Fatalf("expected stage held at 1, got %d", snap.Stage)
	}
	m := h.modal(t)
	if m.Kind != ModalTrialPrompt || m.Stage != 2 {
		t.Fatalf("expected stage 2 trial prompt, got %s stage %d", m.Kind, m.Stage)
	}
	if snap.PendingStage != 2 {
		t.Fatalf("expected pending stage 2, got %d", snap.PendingStage)
	}

	h.e.RecomputeStage()
	if again := h.modal(t); again.ID != m.ID {
		t.Fatalf("expected the same prompt to stay open, got %s", again.ID)
	}
	if n := h.saw(EventModal); n != 1 {
		t.Fatalf("expected one prompt, got %d", n)
	}
}

func TestRecomputeStage_HeldAtPassedTrials(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(1000)
		s.Stage = 2
		s.StageTrialPassed[2] = true
	})
	h.e.RecomputeStage()

	if got := h.e.Snapshot().Stage; got != 2 {
		t.Fatalf("expected stage 2, got %d", got)
	}
	if m := h.modal(t); m.Kind != ModalTrialPrompt || m.Stage != 3 {
		t.Fatalf("expected stage 3 trial prompt, got %s stage %d", m.Kind, m.Stage)
	}
}

func TestRecomputeStage_NeverExceedsTrialChain(t *testing.T) {
	affections := []int64{0, 499, 500, 999, 1000, 1999, 2000, 5000}
	for _, start := range []int{1, 4} {
		for _, aff := range affections {
			for mask := 0; mask < 8; mask++ {
				h := newHarness(t, testConfig(), func(s *State) {
					s.Affection = Finite(aff)
					s.Stage = start
					s.StageTrialPassed[2] = mask&1 != 0
					s.StageTrialPassed[3] = mask&2 != 0
					s.StageTrialPassed[4] = mask&4 != 0
				})
				h.e.RecomputeStage()

				chain := 1
				for i, stage := range []int{2, 3, 4} {
					if mask&(1<<i) == 0 {
						break
					}
					chain = stage
				}
				if got := h.e.Snapshot().Stage; got > chain {
					t.Fatalf("start=%d aff=%d mask=%03b: stage %d exceeds chain %d", start, aff, mask, got, chain)
				}
			}
		}
	}
}

func TestRecomputeStage_StageChangeResetsMood(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(600)
		s.Mood = MoodSad
		s.StageTrialPassed[2] = true
	})
	h.e.RecomputeStage()

	snap := h.e.Snapshot()
	if snap.Stage != 2 || snap.Mood != MoodNeutral {
		t.Fatalf("expected stage 2 neutral, got stage %d mood %s", snap.Stage, snap.Mood)
	}
	if h.saw(EventStage) != 1 {
		t.Fatalf("expected a stage event")
	}
}

func TestRecomputeStage_UnboundedAffectionBypassesGating(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.e.Debug().SetUnlimitedAffection(true)

	snap := h.e.Snapshot()
	if snap.Stage != 4 || snap.Affection != "∞" {
		t.Fatalf("expected stage 4 and ∞ affection, got %d %s", snap.Stage, snap.Affection)
	}
	h.noModal(t)

	h.e.Debug().SetUnlimitedAffection(false)
	snap = h.e.Snapshot()
	if snap.Stage != 1 || snap.Affection != "0" {
		t.Fatalf("expected gating restored, got stage %d affection %s", snap.Stage, snap.Affection)
	}
}

func TestDecline_CooldownSuppressesThenReoffers(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.RecomputeStage()
	m := h.modal(t)

	if err := h.e.Decline(m.ID); err != nil {
		t.Fatalf("Decline err: %v", err)
	}
	until := h.e.Snapshot().State.TrialCooldownUntil
	if until <= h.clock.Now().UnixMilli() {
		t.Fatalf("expected cooldown in the future, got %d", until)
	}

	h.clock.Advance(9 * time.Second)
	h.e.RecomputeStage()
	h.noModal(t)

	h.clock.Advance(time.Second)
	h.e.RecomputeStage()
	if again := h.modal(t); again.Kind != ModalTrialPrompt || again.Stage != 2 {
		t.Fatalf("expected stage 2 prompt after cooldown, got %s", again.Kind)
	}
	if err := h.e.Decline(m.ID); !errors.Is(err, ErrStaleModal) {
		t.Fatalf("expected ErrStaleModal for the old prompt, got %v", err)
	}
}

func TestTrial_PassUnlocksStage(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.RecomputeStage()
	run, err := h.e.EnterTrial(h.modal(t).ID)
	if err != nil {
		t.Fatalf("EnterTrial err: %v", err)
	}
	if h.e.CanInterrupt() {
		t.Fatalf("expected trial to block interruptions")
	}
	if got := h.e.Snapshot().TrialStates[2]; got != TrialRunning {
		t.Fatalf("expected trial running, got %s", got)
	}

	if err := run.Finish(true, Reward{Hearts: 5}); err != nil {
		t.Fatalf("Finish err: %v", err)
	}
	snap := h.e.Snapshot()
	if snap.Stage != 2 || !snap.TrialsPassed[2] || snap.PendingStage != 0 {
		t.Fatalf("expected stage 2 unlocked, got %+v", snap)
	}
	if snap.Hearts != "5" {
		t.Fatalf("expected pass bonus credited, got %s hearts", snap.Hearts)
	}
	if snap.Arbiter != (Arbiter{}) {
		t.Fatalf("expected arbiter cleared, got %+v", snap.Arbiter)
	}
	if err := run.Finish(true, Reward{}); !errors.Is(err, ErrRunFinished) {
		t.Fatalf("expected ErrRunFinished, got %v", err)
	}
}

func TestTrial_FailSetsCooldownWithoutPenalty(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(500)
		s.Mood = MoodHappy
	})
	h.e.RecomputeStage()
	run, err := h.e.EnterTrial(h.modal(t).ID)
	if err != nil {
		t.Fatalf("EnterTrial err: %v", err)
	}
	if err := run.Finish(false, Reward{Hearts: 99}); err != nil {
		t.Fatalf("Finish err: %v", err)
	}

	snap := h.e.Snapshot()
	if snap.Stage != 1 || snap.TrialsPassed[2] || snap.Mood != MoodHappy || snap.Hearts != "0" {
		t.Fatalf("unexpected state after fail: %+v", snap)
	}
	if snap.TrialStates[2] != TrialLocked {
		t.Fatalf("expected trial back to locked, got %s", snap.TrialStates[2])
	}
	h.noModal(t)

	h.clock.Advance(6 * time.Second)
	h.e.RecomputeStage()
	if m := h.modal(t); m.Stage != 2 {
		t.Fatalf("expected re-offer of stage 2, got %d", m.Stage)
	}
}

func TestFinishTrial_NotRunningRejected(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	if err := h.e.FinishTrial(2, true); !errors.Is(err, ErrTrialNotRunning) {
		t.Fatalf("expected ErrTrialNotRunning, got %v", err)
	}
	if h.e.Snapshot().TrialsPassed[2] {
		t.Fatalf("trial must not be marked passed")
	}
}

func TestTrialPass_SurvivesAffectionLoss(t *testing.T) {
	cfg := testConfig()
	cfg.PopupChance = map[PopupContext]float64{PopupAny: 1}
	h := newHarness(t, cfg, func(s *State) {
		s.Affection = Finite(550)
		s.Stage = 2
		s.StageTrialPassed[2] = true
	})
	if !h.e.MaybeTriggerPopup(PopupAny) {
		t.Fatalf("expected popup to fire")
	}
	if err := h.e.AnswerPopup(h.modal(t).ID, 1); err != nil {
		t.Fatalf("AnswerPopup err: %v", err)
	}

	snap := h.e.Snapshot()
	if snap.Affection != "450" {
		t.Fatalf("expected affection 450, got %s", snap.Affection)
	}
	if snap.Stage != 2 || !snap.TrialsPassed[2] {
		t.Fatalf("expected stage 2 and trial kept, got stage %d passed %v", snap.Stage, snap.TrialsPassed[2])
	}
	if snap.Hearts != "0" || snap.State.Hearts != Finite(0) {
		t.Fatalf("expected hearts floored at 0, got %s", snap.Hearts)
	}
}

func TestEnding_OffersOnceAndCompletes(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(3000)
		s.Stage = 4
		s.StageTrialPassed = map[int]bool{2: true, 3: true, 4: true}
	})
	h.e.RecomputeStage()
	m := h.modal(t)
	if m.Kind != ModalEndingPrompt {
		t.Fatalf("expected ending prompt, got %s", m.Kind)
	}

	run, err := h.e.EnterEnding(m.ID)
	if err != nil {
		t.Fatalf("EnterEnding err: %v", err)
	}
	if a := h.e.Snapshot().Arbiter; !a.Ending || !a.MiniGame {
		t.Fatalf("expected ending to hold the arbiter, got %+v", a)
	}
	if done, err := run.Choose(0); err != nil || done {
		t.Fatalf("first choice: done=%v err=%v", done, err)
	}
	if _, err := run.Choose(5); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	done, err := run.Choose(0)
	if err != nil || !done {
		t.Fatalf("final choice: done=%v err=%v", done, err)
	}

	snap := h.e.Snapshot()
	if !snap.EndingSeen || !snap.State.Flags["ending:devotion"] {
		t.Fatalf("expected devotion ending recorded, got %+v", snap.State.Flags)
	}
	if snap.Affection != "3100" || snap.Hearts != "50" {
		t.Fatalf("expected ending reward, got %s/%s", snap.Hearts, snap.Affection)
	}
	if snap.Arbiter != (Arbiter{}) || snap.EndingState != EndingCompleted {
		t.Fatalf("expected arbiter clear and ending completed, got %+v %s", snap.Arbiter, snap.EndingState)
	}

	h.e.ApplyRewards(0, 5000)
	h.e.RecomputeStage()
	h.noModal(t)
	if n := h.saw(EventEnding); n != 1 {
		t.Fatalf("expected exactly one ending, got %d", n)
	}
	if _, err := run.Choose(0); !errors.Is(err, ErrRunFinished) {
		t.Fatalf("expected ErrRunFinished, got %v", err)
	}
}

func TestEnding_RequiresStage4Trial(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(5000)
		s.Stage = 3
		s.StageTrialPassed = map[int]bool{2: true, 3: true}
	})
	h.e.RecomputeStage()
	if m := h.modal(t); m.Kind != ModalTrialPrompt || m.Stage != 4 {
		t.Fatalf("expected the stage 4 trial first, got %s", m.Kind)
	}
	if h.e.Snapshot().EndingState != EndingNotEligible {
		t.Fatalf("expected ending not eligible")
	}
}

func TestEnding_QuitAppliesCooldown(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(3000)
		s.Stage = 4
		s.StageTrialPassed = map[int]bool{2: true, 3: true, 4: true}
	})
	h.e.RecomputeStage()
	if _, err := h.e.EnterEnding(h.modal(t).ID); err != nil {
		t.Fatalf("EnterEnding err: %v", err)
	}

	h.e.Quit()
	snap := h.e.Snapshot()
	if snap.Arbiter != (Arbiter{}) {
		t.Fatalf("expected arbiter cleared, got %+v", snap.Arbiter)
	}
	if snap.EndingSeen {
		t.Fatalf("quitting must not complete the ending")
	}
	h.noModal(t)

	h.clock.Advance(4 * time.Second)
	h.e.RecomputeStage()
	if m := h.modal(t); m.Kind != ModalEndingPrompt {
		t.Fatalf("expected ending re-offered, got %s", m.Kind)
	}
}

func TestQuit_IdempotentAndClearsArbiter(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.e.Quit()
	h.e.Quit()

	run, err := h.e.StartMiniGame("catch")
	if err != nil {
		t.Fatalf("StartMiniGame err: %v", err)
	}
	if _, err := h.e.StartMiniGame("pop"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	h.e.Quit()
	if a := h.e.Snapshot().Arbiter; a != (Arbiter{}) {
		t.Fatalf("expected arbiter cleared, got %+v", a)
	}
	if h.e.Snapshot().State.TrialCooldownUntil != 0 {
		t.Fatalf("plain mini-game quit must not set a cooldown")
	}
	if err := run.Complete(Result{Hearts: 10}); !errors.Is(err, ErrRunFinished) {
		t.Fatalf("expected ErrRunFinished, got %v", err)
	}
}

func TestQuit_DuringTrialSetsCooldown(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.RecomputeStage()
	if _, err := h.e.EnterTrial(h.modal(t).ID); err != nil {
		t.Fatalf("EnterTrial err: %v", err)
	}
	h.e.Quit()

	snap := h.e.Snapshot()
	want := h.clock.Now().Add(4 * time.Second).UnixMilli()
	if snap.State.TrialCooldownUntil != want {
		t.Fatalf("expected cooldown %d, got %d", want, snap.State.TrialCooldownUntil)
	}
	if snap.TrialStates[2] != TrialLocked {
		t.Fatalf("expected trial locked after quit, got %s", snap.TrialStates[2])
	}
	h.noModal(t)
}

func TestMiniGame_CompleteCreditsThroughMultiplier(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.AffectionMult = 1.1 })
	run, err := h.e.StartMiniGame("catch")
	if err != nil {
		t.Fatalf("StartMiniGame err: %v", err)
	}
	if err := run.Complete(Result{Hearts: 20, Affection: 5, Mood: MoodHappy}); err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	snap := h.e.Snapshot()
	if snap.Hearts != "20" || snap.Affection != "6" || snap.Mood != MoodHappy {
		t.Fatalf("unexpected payout: %s/%s %s", snap.Hearts, snap.Affection, snap.Mood)
	}
	if err := run.Complete(Result{Hearts: 20}); !errors.Is(err, ErrRunFinished) {
		t.Fatalf("expected ErrRunFinished, got %v", err)
	}
	if h.store.Saves() == 0 {
		t.Fatalf("expected the snapshot to be persisted")
	}
}

func TestStartMiniGame_BlockedByOpenModal(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.RecomputeStage()
	h.modal(t)
	if _, err := h.e.StartMiniGame("catch"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSnapshot_SpriteFallsBackToNeutral(t *testing.T) {
	clock := &testClock{t: time.Unix(1700000000, 0)}
	st := DefaultState(clock.Now())
	st.Mood = MoodHappy
	data, _ := st.Encode()

	have := map[string]bool{"stage1-neutral": true}
	e, err := NewEngine(testConfig(), NewMemoryStore(data), testCatalog(),
		WithClock(clock.Now),
		WithAssets(func(s string) bool { return have[s] }),
	)
	if err != nil {
		t.Fatalf("NewEngine err: %v", err)
	}
	if got := e.Snapshot().Sprite; got != "stage1-neutral" {
		t.Fatalf("expected neutral fallback, got %q", got)
	}
	delete(have, "stage1-neutral")
	if got := e.Snapshot().Sprite; got != "" {
		t.Fatalf("expected empty sprite, got %q", got)
	}
}

func TestStart_GreetsAndRuns(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.Start()
	if h.saw(EventDialogue) == 0 {
		t.Fatalf("expected a greeting")
	}
	if h.saw(EventHUD) == 0 {
		t.Fatalf("expected a HUD refresh")
	}
	if m := h.modal(t); m.Kind != ModalTrialPrompt {
		t.Fatalf("expected trial prompt on start, got %s", m.Kind)
	}
}

func TestEnterTrial_RefusedAcceptKeepsPrompt(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) { s.Affection = Finite(500) })
	h.e.RecomputeStage()
	m := h.modal(t)

	h.e.trials[2] = newTrialMachine(2, true)
	if _, err := h.e.EnterTrial(m.ID); err == nil {
		t.Fatalf("expected refused accept")
	}
	if got := h.modal(t); got.ID != m.ID {
		t.Fatalf("expected prompt %s still open, got %s", m.ID, got.ID)
	}
	if !h.e.CanInterrupt() {
		t.Fatalf("refused accept must not start a trial")
	}
}

func TestEnterEnding_RefusedAcceptKeepsPrompt(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Affection = Finite(3000)
		s.Stage = 4
		s.StageTrialPassed = map[int]bool{2: true, 3: true, 4: true}
	})
	h.e.RecomputeStage()
	m := h.modal(t)
	if m.Kind != ModalEndingPrompt {
		t.Fatalf("expected ending prompt, got %s", m.Kind)
	}

	h.e.ending = newEndingMachine(true)
	if _, err := h.e.EnterEnding(m.ID); err == nil {
		t.Fatalf("expected refused accept")
	}
	if got := h.modal(t); got.ID != m.ID {
		t.Fatalf("expected prompt %s still open, got %s", m.ID, got.ID)
	}
}
