package affection

import "fmt"

var trialTitles = map[int]string{
	2: "🍲 Stage 2 Trial: Make Perfect Dakgalbi",
	3: "🛸 Stage 3 Trial: Pixel Space Pinball",
	4: "🎉 Stage 4 Trial: Minyoung Party",
}

var trialBlurbs = map[int]string{
	2: "Time the heat perfectly. Pass to unlock Stage 2 evolution.",
	3: "Score points in pixel pinball. Pass to unlock Stage 3 evolution.",
	4: "Survive the party. Pass to unlock Stage 4 evolution.",
}

// RecomputeStage reconciles stage against affection and passed trials and
// offers any prompt the player has earned.
func (e *Engine) RecomputeStage() {
	e.mu.Lock()
	e.recomputeLocked()
	e.unlock()
}

func (e *Engine) desiredStageLocked() int {
	desired := MinStage
	for stage := 2; stage <= MaxStage; stage++ {
		if e.state.Affection.AtLeast(e.cfg.stageThreshold(stage)) {
			desired = stage
		}
	}
	return desired
}

// trialChainLocked is the highest stage whose trials, and every trial
// below it, are passed.
func (e *Engine) trialChainLocked() int {
	chain := MinStage
	for _, stage := range trialStages {
		if !e.state.StageTrialPassed[stage] {
			break
		}
		chain = stage
	}
	return chain
}

func (e *Engine) recomputeLocked() {
	e.state.enforceCheats()

	desired := e.desiredStageLocked()
	chain := e.trialChainLocked()

	next := MaxStage
	if !e.state.Affection.IsUnbounded() {
		// Never demote on affection loss; the trial chain is the only cap.
		next = min(max(e.state.Stage, min(desired, chain)), chain)
	}
	next = clampStage(next)
	if next != e.state.Stage {
		e.state.Stage = next
		e.state.Mood = MoodNeutral
		e.emitLocked(Event{Kind: EventStage, Stage: next, Text: stageLabel(next)})
	}
	e.persistLocked()
	e.renderLocked()

	if desired > e.state.Stage {
		for _, stage := range trialStages {
			if stage <= desired && !e.state.StageTrialPassed[stage] {
				e.offerTrialLocked(stage)
				break
			}
		}
	}

	e.syncEndingLocked()
	e.offerEndingLocked()
}

func (e *Engine) promptAllowedLocked() bool {
	if !e.arbiter.CanInterrupt() || e.modal != nil {
		return false
	}
	return e.nowMs() >= e.state.TrialCooldownUntil
}

func (e *Engine) offerTrialLocked(stage int) bool {
	if !e.promptAllowedLocked() {
		return false
	}
	m := e.trials[stage]
	if m.Current() != TrialOffered && !fire(m, evOffer) {
		return false
	}
	s := stage
	e.state.PendingStage = &s
	e.persistLocked()

	title, ok := trialTitles[stage]
	if !ok {
		title = fmt.Sprintf("Stage %d Trial", stage)
	}
	e.openModalLocked(Modal{
		Kind:    ModalTrialPrompt,
		Title:   "⚠️ Evolution Trial",
		Text:    fmt.Sprintf("%s\n\n%s\n\nAre you ready to enter?", title, trialBlurbs[stage]),
		Stage:   stage,
		Choices: []string{"Yes, enter", "Not yet"},
	})
	return true
}

func (e *Engine) endingEligibleLocked() bool {
	return !e.state.EndingSeen &&
		e.state.StageTrialPassed[MaxStage] &&
		e.state.Affection.AtLeast(e.cfg.FinalThreshold)
}

func (e *Engine) syncEndingLocked() {
	if e.endingEligibleLocked() {
		fire(e.ending, evQualify)
	} else {
		fire(e.ending, evDisqualify)
	}
}

func (e *Engine) offerEndingLocked() bool {
	if !e.endingEligibleLocked() || !e.promptAllowedLocked() {
		return false
	}
	if e.ending.Current() != EndingOffered && !fire(e.ending, evOffer) {
		return false
	}
	e.openModalLocked(Modal{
		Kind:    ModalEndingPrompt,
		Title:   "💫 Final Trial",
		Text:    fmt.Sprintf("Affection reached %d.\n\nThis is the ending.\nChoices matter.\n\nAre you ready?", e.cfg.FinalThreshold),
		Choices: []string{"Yes, begin", "Not yet"},
	})
	return true
}

// Decline answers "Not yet" to a trial or ending prompt and starts the
// matching cooldown.
func (e *Engine) Decline(modalID string) error {
	e.mu.Lock()
	defer e.unlock()

	m, err := e.takeModalLocked(modalID, ModalTrialPrompt, ModalEndingPrompt)
	if err != nil {
		return err
	}
	e.touchActionLocked()
	now := e.nowMs()
	switch m.Kind {
	case ModalTrialPrompt:
		fire(e.trials[m.Stage], evDecline)
		e.state.TrialCooldownUntil = now + e.cfg.DeclineTrialCooldown.Milliseconds()
		e.sayLocked("Minyoung: “Okay. Tell me when you’re ready.”")
	case ModalEndingPrompt:
		fire(e.ending, evDecline)
		e.state.TrialCooldownUntil = now + e.cfg.DeclineEndingCooldown.Milliseconds()
		e.sayLocked("Minyoung: “Okay. I’ll wait. 🥺”")
	}
	e.persistLocked()
	return nil
}
