package affection

import "fmt"

// Debug exposes the cheat hooks. Nothing in normal play calls it.
type Debug struct {
	e *Engine
}

func (e *Engine) Debug() *Debug { return &Debug{e: e} }

func (d *Debug) SetUnlimitedHearts(on bool) {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	e.state.Hearts = e.toggleCheatLocked("hearts", e.state.Hearts, on)
	e.state.Cheats.UnlimitedHearts = on
	e.state.enforceCheats()
	e.persistLocked()
	e.renderLocked()
	e.sayLocked(onOff(on, "Cheat: Unlimited hearts enabled.", "Cheat: Unlimited hearts disabled."))
}

func (d *Debug) SetUnlimitedAffection(on bool) {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	e.state.Affection = e.toggleCheatLocked("affection", e.state.Affection, on)
	e.state.Cheats.UnlimitedAffection = on
	e.recomputeLocked()
	e.sayLocked(onOff(on, "Cheat: Unlimited affection enabled.", "Cheat: Unlimited affection disabled."))
}

// toggleCheatLocked stashes the finite value when a cheat turns on and
// hands it back when it turns off.
func (e *Engine) toggleCheatLocked(key string, cur Amount, on bool) Amount {
	if on {
		if !cur.IsUnbounded() {
			e.cheatHold[key] = cur
		}
		return Unbounded()
	}
	held, ok := e.cheatHold[key]
	delete(e.cheatHold, key)
	if !ok {
		if cur.IsUnbounded() {
			return Finite(0)
		}
		return cur
	}
	return held
}

func (d *Debug) AddHearts(n int64) {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	e.state.Hearts = e.state.Hearts.Add(n)
	e.state.enforceCheats()
	e.persistLocked()
	e.renderLocked()
	e.sayLocked(fmt.Sprintf("Cheat: %+d hearts.", n))
}

func (d *Debug) AddAffection(n int64) {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	e.state.Affection = e.state.Affection.Add(n)
	e.recomputeLocked()
	e.sayLocked(fmt.Sprintf("Cheat: %+d affection.", n))
}

func (d *Debug) SetAffection(n int64) {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	e.state.Affection = Finite(n)
	e.recomputeLocked()
	e.sayLocked(fmt.Sprintf("Cheat: affection set to %d.", n))
}

// SetTrialPassed writes a trial flag directly. Clearing a flag can lower
// the stage.
func (d *Debug) SetTrialPassed(stage int, passed bool) error {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	if _, ok := e.trials[stage]; !ok {
		return fmt.Errorf("no trial for stage %d", stage)
	}
	e.setTrialPassedLocked(stage, passed)
	e.recomputeLocked()
	e.sayLocked(fmt.Sprintf("Cheat: stage %d trial %s.", stage, onOff(passed, "passed", "cleared")))
	return nil
}

func (d *Debug) SetAllTrials(passed bool) {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	for _, stage := range trialStages {
		e.setTrialPassedLocked(stage, passed)
	}
	e.recomputeLocked()
	e.sayLocked(onOff(passed, "Cheat: all trials marked as passed.", "Cheat: trial passes cleared."))
}

func (e *Engine) setTrialPassedLocked(stage int, passed bool) {
	if e.trials[stage].Current() == TrialRunning {
		e.arbiter.reset()
		e.runID = 0
	}
	if e.modal != nil && e.modal.Kind == ModalTrialPrompt && e.modal.Stage == stage {
		e.withdrawModalLocked()
	}
	e.state.StageTrialPassed[stage] = passed
	e.trials[stage] = newTrialMachine(stage, passed)
	if !passed && e.state.PendingStage != nil && *e.state.PendingStage == stage {
		e.state.PendingStage = nil
	}
	e.persistLocked()
}

// ForceTrialPrompt opens the entry prompt for stage, ignoring the cooldown
// and replacing any open modal.
func (d *Debug) ForceTrialPrompt(stage int) error {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	if _, ok := e.trials[stage]; !ok {
		return fmt.Errorf("no trial for stage %d", stage)
	}
	if e.state.StageTrialPassed[stage] {
		return ErrInvalidState(fmt.Sprintf("stage %d trial already passed", stage))
	}
	if !e.arbiter.CanInterrupt() {
		return ErrBusy
	}
	e.state.TrialCooldownUntil = 0
	e.withdrawModalLocked()
	if !e.offerTrialLocked(stage) {
		return ErrInvalidState("trial prompt refused")
	}
	return nil
}

// ForceEndingPrompt opens the ending prompt ignoring the cooldown. The
// ending must still be eligible.
func (d *Debug) ForceEndingPrompt() error {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	if e.state.EndingSeen {
		return ErrInvalidState("ending already seen")
	}
	if !e.endingEligibleLocked() {
		return ErrInvalidState("ending not eligible")
	}
	if !e.arbiter.CanInterrupt() {
		return ErrBusy
	}
	e.state.TrialCooldownUntil = 0
	e.withdrawModalLocked()
	e.syncEndingLocked()
	if !e.offerEndingLocked() {
		return ErrInvalidState("ending prompt refused")
	}
	return nil
}

// withdrawModalLocked closes the open modal without answering it.
func (e *Engine) withdrawModalLocked() {
	if e.modal == nil {
		return
	}
	m, _ := e.takeModalLocked(e.modal.ID)
	switch m.Kind {
	case ModalTrialPrompt:
		fire(e.trials[m.Stage], evDecline)
	case ModalEndingPrompt:
		fire(e.ending, evDecline)
	}
}

// Reset wipes progression back to a fresh save.
func (d *Debug) Reset() {
	e := d.e
	e.mu.Lock()
	defer e.unlock()
	e.withdrawModalLocked()
	e.state = DefaultState(e.now())
	e.arbiter.reset()
	e.runID = 0
	e.story = nil
	e.cheatHold = make(map[string]Amount)
	for _, stage := range trialStages {
		e.trials[stage] = newTrialMachine(stage, false)
	}
	e.ending = newEndingMachine(false)
	e.persistLocked()
	e.renderLocked()
	e.sayLocked("Save reset.")
}

func onOff(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
