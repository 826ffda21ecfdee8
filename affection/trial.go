package affection

// Reward is a payout from a mini-game, trial or ending.
type Reward struct {
	Hearts    int64 `json:"hearts"`
	Affection int64 `json:"affection"`
}

// TrialRun is the handle for one accepted trial. It resolves once.
type TrialRun struct {
	e     *Engine
	id    uint64
	Stage int
}

// EnterTrial accepts an open trial prompt.
func (e *Engine) EnterTrial(modalID string) (*TrialRun, error) {
	e.mu.Lock()
	defer e.unlock()

	m, err := e.peekModalLocked(modalID, ModalTrialPrompt)
	if err != nil {
		return nil, err
	}
	if !e.trials[m.Stage].Can(evAccept) {
		return nil, ErrInvalidState("trial prompt no longer offered")
	}
	e.takeModalLocked(modalID, ModalTrialPrompt)
	e.touchActionLocked()
	fire(e.trials[m.Stage], evAccept)
	e.arbiter.startTrial()
	id := e.nextRunLocked()
	e.emitLocked(Event{Kind: EventTrialStart, Stage: m.Stage, Text: trialTitles[m.Stage]})
	e.renderLocked()
	return &TrialRun{e: e, id: id, Stage: m.Stage}, nil
}

// Finish reports the trial outcome. bonus is credited only on a pass.
func (r *TrialRun) Finish(passed bool, bonus Reward) error {
	e := r.e
	e.mu.Lock()
	defer e.unlock()

	if e.runID != r.id || !e.arbiter.Trial {
		return ErrRunFinished
	}
	if passed {
		e.creditLocked(max(bonus.Hearts, 0), max(bonus.Affection, 0))
	}
	return e.finishTrialLocked(r.Stage, passed)
}

// FinishTrial resolves the running trial for stage. It is the only writer
// of the trial pass flags outside the debug surface.
func (e *Engine) FinishTrial(stage int, passed bool) error {
	e.mu.Lock()
	defer e.unlock()
	return e.finishTrialLocked(stage, passed)
}

func (e *Engine) finishTrialLocked(stage int, passed bool) error {
	m, ok := e.trials[stage]
	if !ok || !e.arbiter.Trial || m.Current() != TrialRunning {
		return ErrTrialNotRunning
	}
	e.arbiter.reset()
	e.runID = 0

	if passed {
		fire(m, evPass)
		e.state.StageTrialPassed[stage] = true
		e.state.PendingStage = nil
		e.setMoodLocked(MoodHappy)
		e.sayLocked("Minyoung: “Okay… you did it. 😳💗”")
	} else {
		fire(m, evFail)
		e.state.TrialCooldownUntil = e.nowMs() + e.cfg.FailTrialCooldown.Milliseconds()
		e.sayLocked("Minyoung: “Try again later… when you’re ready.” 🥺")
	}
	e.emitLocked(Event{Kind: EventTrial, Stage: stage, Passed: passed})
	e.persistLocked()
	e.recomputeLocked()
	return nil
}
