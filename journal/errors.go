package journal

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOp  = errors.New("unknown op")
	ErrBadCommand = errors.New("malformed command")
	ErrOutOfOrder = errors.New("time offset goes backwards")
	ErrNoModal    = errors.New("no modal is open")
	ErrNoRun      = errors.New("nothing is running")
)

// StepError points at the script command that failed.
type StepError struct {
	Step int
	Op   Op
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
