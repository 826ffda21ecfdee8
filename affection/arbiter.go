package affection

// Arbiter is the tri-state interruption lock. A trial or the ending also
// raises MiniGame so anything that respects mini-games respects them too.
type Arbiter struct {
	MiniGame bool `json:"miniGame"`
	Trial    bool `json:"trial"`
	Ending   bool `json:"ending"`
}

func (a Arbiter) CanInterrupt() bool {
	return !(a.MiniGame || a.Trial || a.Ending)
}

func (a *Arbiter) startMiniGame() { a.MiniGame = true }

func (a *Arbiter) startTrial() {
	a.Trial = true
	a.MiniGame = true
}

func (a *Arbiter) startEnding() {
	a.Ending = true
	a.MiniGame = true
}

func (a *Arbiter) reset() { *a = Arbiter{} }
