package affection

import "errors"

var (
	ErrInsufficientHearts = errors.New("not enough hearts")
	ErrAlreadyOwned       = errors.New("unique item already owned")
	ErrBusy               = errors.New("another activity is running")
	ErrStaleModal         = errors.New("modal is no longer open")
	ErrRunFinished        = errors.New("run already finished")
	ErrTrialNotRunning    = errors.New("trial is not running")
	ErrInvalidChoice      = errors.New("invalid choice")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
