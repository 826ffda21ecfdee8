package affection

// ApplyRewards credits a mini-game or trial payout. Negative inputs are
// treated as zero; punitive deltas only come from popup answers.
func (e *Engine) ApplyRewards(hearts, affection int64) {
	e.mu.Lock()
	e.applyRewardsLocked(hearts, affection)
	e.unlock()
}

func (e *Engine) applyRewardsLocked(hearts, affection int64) int64 {
	credited := e.creditLocked(max(hearts, 0), max(affection, 0))
	e.persistLocked()
	e.recomputeLocked()
	return credited
}

// creditLocked adds raw hearts and multiplier-adjusted affection and
// returns the affection actually credited.
func (e *Engine) creditLocked(hearts, affection int64) int64 {
	boosted := creditAffection(affection, e.state.AffectionMult)
	e.state.Hearts = e.state.Hearts.Add(hearts)
	e.state.Affection = e.state.Affection.Add(boosted)
	e.state.enforceCheats()
	e.renderLocked()
	return boosted
}

func (e *Engine) SetMood(m Mood) {
	e.mu.Lock()
	e.setMoodLocked(m)
	e.unlock()
}

func (e *Engine) setMoodLocked(m Mood) {
	e.state.Mood = ParseMood(string(m))
	e.persistLocked()
	e.renderLocked()
}

// TouchAction records a player interaction. An angry mood is forgiven.
func (e *Engine) TouchAction() {
	e.mu.Lock()
	e.touchActionLocked()
	e.unlock()
}

func (e *Engine) touchActionLocked() {
	e.state.LastActionAt = e.nowMs()
	if e.state.Mood == MoodAngry {
		e.setMoodLocked(MoodNeutral)
		return
	}
	e.persistLocked()
}
