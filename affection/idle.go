package affection

import "fmt"

// CheckIdle is the idle watcher tick. It runs whatever the arbiter says;
// the host calls it every Config.IdleTick. It reports whether mood changed.
func (e *Engine) CheckIdle() bool {
	e.mu.Lock()
	defer e.unlock()

	idle := e.nowMs() - e.state.LastActionAt
	switch {
	case idle >= e.cfg.IdleAngry.Milliseconds():
		if e.state.Mood == MoodAngry {
			return false
		}
		e.setMoodLocked(MoodAngry)
		e.sayLocked(fmt.Sprintf("%s has been waiting forever!! 😤", e.cfg.Name))
		return true
	case idle >= e.cfg.IdleSad.Milliseconds():
		if e.state.Mood == MoodSad || e.state.Mood == MoodAngry {
			return false
		}
		e.setMoodLocked(MoodSad)
		e.sayLocked(fmt.Sprintf("%s looks a little lonely… 🥺", e.cfg.Name))
		return true
	}
	return false
}
