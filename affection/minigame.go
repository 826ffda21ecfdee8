package affection

// Result is what a mini-game reports on natural completion.
type Result struct {
	Hearts    int64 `json:"hearts"`
	Affection int64 `json:"affection"`
	// Mood, when set, is applied after the rewards.
	Mood Mood `json:"mood,omitempty"`
	// Line is an optional reaction shown after the payout.
	Line string `json:"line,omitempty"`
}

// MiniGameRun is the handle for one started mini-game. Complete and Quit
// both end it; a second call returns ErrRunFinished.
type MiniGameRun struct {
	e    *Engine
	id   uint64
	Kind string
}

func (e *Engine) StartMiniGame(kind string) (*MiniGameRun, error) {
	e.mu.Lock()
	defer e.unlock()

	e.touchActionLocked()
	if !e.arbiter.CanInterrupt() || e.modal != nil {
		return nil, ErrBusy
	}
	e.arbiter.startMiniGame()
	id := e.nextRunLocked()
	e.renderLocked()
	return &MiniGameRun{e: e, id: id, Kind: kind}, nil
}

func (r *MiniGameRun) Complete(res Result) error {
	e := r.e
	e.mu.Lock()
	defer e.unlock()

	if e.runID != r.id || !e.arbiter.MiniGame || e.arbiter.Trial || e.arbiter.Ending {
		return ErrRunFinished
	}
	e.arbiter.reset()
	e.runID = 0

	e.applyRewardsLocked(res.Hearts, res.Affection)
	if res.Line != "" {
		e.sayLocked(res.Line)
	}
	if res.Mood != "" {
		e.setMoodLocked(res.Mood)
	}
	e.maybeTriggerPopupLocked(PopupAfterGame)
	return nil
}

// Quit abandons this run without reward.
func (r *MiniGameRun) Quit() error {
	e := r.e
	e.mu.Lock()
	defer e.unlock()
	if e.runID != r.id {
		return ErrRunFinished
	}
	e.quitLocked()
	return nil
}
