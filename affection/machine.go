package affection

import (
	"context"
	"log"

	"github.com/looplab/fsm"
)

// Trial machine states.
const (
	TrialLocked  = "locked"
	TrialOffered = "offered"
	TrialRunning = "running"
	TrialPassed  = "passed"
)

// Ending machine states.
const (
	EndingNotEligible = "not_eligible"
	EndingEligible    = "eligible"
	EndingOffered     = "offered"
	EndingRunning     = "running"
	EndingCompleted   = "completed"
)

const (
	evOffer      = "offer"
	evDecline    = "decline"
	evAccept     = "accept"
	evPass       = "pass"
	evFail       = "fail"
	evQuit       = "quit"
	evQualify    = "qualify"
	evDisqualify = "disqualify"
	evComplete   = "complete"
)

// Passed has no outgoing edge: a passed trial can never be re-locked by
// gameplay.
func newTrialMachine(stage int, passed bool) *fsm.FSM {
	initial := TrialLocked
	if passed {
		initial = TrialPassed
	}
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: evOffer, Src: []string{TrialLocked}, Dst: TrialOffered},
			{Name: evDecline, Src: []string{TrialOffered}, Dst: TrialLocked},
			{Name: evAccept, Src: []string{TrialOffered}, Dst: TrialRunning},
			{Name: evPass, Src: []string{TrialRunning}, Dst: TrialPassed},
			{Name: evFail, Src: []string{TrialRunning}, Dst: TrialLocked},
			{Name: evQuit, Src: []string{TrialRunning}, Dst: TrialLocked},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Printf("[Trial %d] %s -> %s (%s)", stage, e.Src, e.Dst, e.Event)
			},
		},
	)
}

// Completed has no outgoing edge: the ending never retriggers.
func newEndingMachine(seen bool) *fsm.FSM {
	initial := EndingNotEligible
	if seen {
		initial = EndingCompleted
	}
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: evQualify, Src: []string{EndingNotEligible}, Dst: EndingEligible},
			{Name: evDisqualify, Src: []string{EndingEligible}, Dst: EndingNotEligible},
			{Name: evOffer, Src: []string{EndingEligible}, Dst: EndingOffered},
			{Name: evDecline, Src: []string{EndingOffered}, Dst: EndingEligible},
			{Name: evAccept, Src: []string{EndingOffered}, Dst: EndingRunning},
			{Name: evQuit, Src: []string{EndingRunning}, Dst: EndingEligible},
			{Name: evComplete, Src: []string{EndingRunning}, Dst: EndingCompleted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Printf("[Ending] %s -> %s (%s)", e.Src, e.Dst, e.Event)
			},
		},
	)
}

// fire runs a transition the caller has already judged legal; a refusal
// is logged rather than surfaced.
func fire(m *fsm.FSM, event string) bool {
	if !m.Can(event) {
		return false
	}
	if err := m.Event(context.Background(), event); err != nil {
		log.Printf("[Engine] transition %q from %q refused: %v", event, m.Current(), err)
		return false
	}
	return true
}
