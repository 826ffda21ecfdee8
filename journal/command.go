// Package journal is the command language spoken to an engine, a driver
// that applies it, and the tape of events a run produces.
package journal

import "fmt"

type Op string

const (
	OpTouch       Op = "touch"
	OpReward      Op = "reward"
	OpMood        Op = "mood"
	OpRecompute   Op = "recompute"
	OpPlay        Op = "play"
	OpComplete    Op = "complete"
	OpQuit        Op = "quit"
	OpMenu        Op = "menu"
	OpPopup       Op = "popup"
	OpAnswer      Op = "answer"
	OpDecline     Op = "decline"
	OpEnterTrial  Op = "enter_trial"
	OpFinishTrial Op = "finish_trial"
	OpEnterEnding Op = "enter_ending"
	OpChoose      Op = "choose"
	OpBuy         Op = "buy"
	OpIdle        Op = "idle"
	OpCheat       Op = "cheat"
	OpSnapshot    Op = "snapshot"
)

var knownOps = map[Op]bool{
	OpTouch: true, OpReward: true, OpMood: true, OpRecompute: true,
	OpPlay: true, OpComplete: true, OpQuit: true, OpMenu: true,
	OpPopup: true, OpAnswer: true, OpDecline: true,
	OpEnterTrial: true, OpFinishTrial: true, OpEnterEnding: true, OpChoose: true,
	OpBuy: true, OpIdle: true, OpCheat: true, OpSnapshot: true,
}

// Command is one player or host action. Only the fields the op reads are
// set. Modal may be left empty to mean whichever modal is open.
type Command struct {
	Op Op `json:"op"`
	// AtMs is the offset from the start of a scripted run. Live sessions
	// ignore it.
	AtMs int64 `json:"atMs,omitempty"`

	Modal     string `json:"modal,omitempty"`
	Choice    int    `json:"choice,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Item      string `json:"item,omitempty"`
	Context   string `json:"context,omitempty"`
	Hearts    int64  `json:"hearts,omitempty"`
	Affection int64  `json:"affection,omitempty"`
	Mood      string `json:"mood,omitempty"`
	Passed    bool   `json:"passed,omitempty"`
	Line      string `json:"line,omitempty"`
}

// Check reports whether the command is well formed. It does not look at
// engine state.
func (c Command) Check() error {
	if !knownOps[c.Op] {
		return fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
	}
	switch c.Op {
	case OpPlay:
		if c.Kind == "" {
			return fmt.Errorf("%w: play needs a kind", ErrBadCommand)
		}
	case OpBuy:
		if c.Item == "" {
			return fmt.Errorf("%w: buy needs an item", ErrBadCommand)
		}
	case OpMood:
		if c.Mood == "" {
			return fmt.Errorf("%w: mood needs a mood", ErrBadCommand)
		}
	}
	return nil
}

// Script is a recorded or hand-written sequence of commands replayed
// against a fresh engine.
type Script struct {
	Seed int64 `json:"seed"`
	// Tuning is an optional YAML overlay on the default config.
	Tuning string `json:"tuning,omitempty"`
	// State is an optional starting snapshot.
	State    []byte    `json:"state,omitempty"`
	Commands []Command `json:"commands"`
}

// Validate rejects unknown ops and time offsets that go backwards.
func Validate(s Script) error {
	var last int64
	for i, c := range s.Commands {
		if err := c.Check(); err != nil {
			return &StepError{Step: i, Op: c.Op, Err: err}
		}
		if c.AtMs < last {
			return &StepError{Step: i, Op: c.Op, Err: fmt.Errorf("%w: %d after %d", ErrOutOfOrder, c.AtMs, last)}
		}
		last = c.AtMs
	}
	return nil
}
