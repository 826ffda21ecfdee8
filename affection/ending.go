package affection

import "fmt"

type endingProgress struct {
	scene    string
	affinity Affinity
}

// EndingRun is the handle for the accepted ending script.
type EndingRun struct {
	e  *Engine
	id uint64
}

// EnterEnding accepts the open ending prompt and shows the first scene.
func (e *Engine) EnterEnding(modalID string) (*EndingRun, error) {
	e.mu.Lock()
	defer e.unlock()

	if _, err := e.peekModalLocked(modalID, ModalEndingPrompt); err != nil {
		return nil, err
	}
	if !e.ending.Can(evAccept) {
		return nil, ErrInvalidState("ending prompt no longer offered")
	}
	e.takeModalLocked(modalID, ModalEndingPrompt)
	e.touchActionLocked()
	fire(e.ending, evAccept)
	e.arbiter.startEnding()
	id := e.nextRunLocked()
	e.story = &endingProgress{scene: e.catalog.Ending.Start}
	e.emitSceneLocked()
	e.renderLocked()
	return &EndingRun{e: e, id: id}, nil
}

func (e *Engine) emitSceneLocked() {
	sc, ok := e.catalog.Ending.scene(e.story.scene)
	if !ok {
		return
	}
	e.emitLocked(Event{Kind: EventEndingScene, Scene: &sc, Text: sc.Text})
}

// Scene returns the scene awaiting a choice.
func (r *EndingRun) Scene() (EndingScene, error) {
	e := r.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runID != r.id || e.story == nil {
		return EndingScene{}, ErrRunFinished
	}
	sc, _ := e.catalog.Ending.scene(e.story.scene)
	return sc, nil
}

// Choose picks a choice in the current scene. It reports true once the
// script has finished and the ending is recorded.
func (r *EndingRun) Choose(i int) (bool, error) {
	e := r.e
	e.mu.Lock()
	defer e.unlock()

	if e.runID != r.id || e.story == nil {
		return false, ErrRunFinished
	}
	sc, ok := e.catalog.Ending.scene(e.story.scene)
	if !ok {
		return false, ErrInvalidState(fmt.Sprintf("ending scene %q missing", e.story.scene))
	}
	if i < 0 || i >= len(sc.Choices) {
		return false, fmt.Errorf("%w: %d", ErrInvalidChoice, i)
	}
	e.touchActionLocked()

	c := sc.Choices[i]
	e.story.affinity = e.story.affinity.add(c.Affinity)
	if c.Next != "" {
		e.story.scene = c.Next
		e.emitSceneLocked()
		return false, nil
	}
	e.completeEndingLocked(e.story.affinity.Leader())
	return true, nil
}

func (e *Engine) completeEndingLocked(path Path) {
	v := e.catalog.Ending.variant(path)

	e.setMoodLocked(MoodHappy)
	e.sayLocked("Minyoung: “That’s it… that’s the ending.” 💫")
	e.state.EndingSeen = true
	e.state.Flags["ending:"+string(path)] = true
	fire(e.ending, evComplete)

	e.arbiter.reset()
	e.runID = 0
	e.story = nil
	e.emitLocked(Event{Kind: EventEnding, Path: path, Text: v.Title + "\n\n" + v.Text})
	e.applyRewardsLocked(v.Hearts, v.Affection)
}
