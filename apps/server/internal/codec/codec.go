// Package codec is the JSON wire format between the browser client and
// the gateway.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"minyoung-maker/affection"
	"minyoung-maker/affection/cheat"
	"minyoung-maker/affection/script"
	"minyoung-maker/apps/server/internal/session"
	"minyoung-maker/journal"
)

// OpReset is handled by the gateway itself, not by the session.
const OpReset journal.Op = "reset"

// ClientFrame is one command from the client. ID is echoed in the reply.
type ClientFrame struct {
	ID string `json:"id,omitempty"`
	journal.Command
}

type ReplyFrame struct {
	ID    string         `json:"id,omitempty"`
	Reply *journal.Reply `json:"reply,omitempty"`
	Error *ErrorBody     `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func DecodeClient(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, fmt.Errorf("decode client frame: %w", err)
	}
	if f.Op == "" {
		return ClientFrame{}, fmt.Errorf("decode client frame: missing op")
	}
	return f, nil
}

func EncodeEvent(f session.Frame) ([]byte, error) {
	return json.Marshal(f)
}

func EncodeReply(id string, reply journal.Reply, err error) ([]byte, error) {
	out := ReplyFrame{ID: id}
	if err != nil {
		out.Error = &ErrorBody{Code: ErrorCode(err), Message: err.Error()}
	} else {
		out.Reply = &reply
	}
	return json.Marshal(out)
}

var errorCodes = []struct {
	err  error
	code string
}{
	{affection.ErrInsufficientHearts, "insufficient_hearts"},
	{affection.ErrAlreadyOwned, "already_owned"},
	{affection.ErrBusy, "busy"},
	{affection.ErrStaleModal, "stale_modal"},
	{affection.ErrRunFinished, "run_finished"},
	{affection.ErrTrialNotRunning, "trial_not_running"},
	{affection.ErrInvalidChoice, "invalid_choice"},
	{journal.ErrUnknownOp, "unknown_op"},
	{journal.ErrBadCommand, "bad_command"},
	{journal.ErrNoModal, "no_modal"},
	{journal.ErrNoRun, "no_run"},
	{cheat.ErrUnknownCommand, "unknown_cheat"},
	{script.ErrUnknownItem, "unknown_item"},
	{session.ErrSessionClosed, "session_closed"},
}

// ErrorCode maps err to a stable code the client can switch on.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	var invalid affection.InvalidStateError
	if errors.As(err, &invalid) {
		return "invalid_state"
	}
	return "error"
}
