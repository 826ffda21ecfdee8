//go:build js && wasm

// Command journalwasm exposes journal.Run to the browser, so the web
// client can replay a command script without a server round trip.
package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"minyoung-maker/journal"
)

type runRequest struct {
	Script journal.Script `json:"script"`
}

type runError struct {
	Step    int    `json:"step"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type runResponse struct {
	OK    bool          `json:"ok"`
	Tape  *journal.Tape `json:"tape,omitempty"`
	Error *runError     `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__journalRun", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(runResponse{Error: &runError{Step: -1, Reason: "invalid_request", Message: "missing request payload"}})
		}
		return mustJSON(handleRun(args[0].String()))
	}))

	select {}
}

func handleRun(raw string) runResponse {
	var req runRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return runResponse{Error: &runError{Step: -1, Reason: "invalid_json", Message: err.Error()}}
	}

	tape, err := journal.Run(req.Script)
	if err != nil {
		var stepErr *journal.StepError
		if errors.As(err, &stepErr) {
			return runResponse{Error: &runError{Step: stepErr.Step, Reason: reason(stepErr.Err), Message: err.Error()}}
		}
		return runResponse{Error: &runError{Step: -1, Reason: "run_failed", Message: err.Error()}}
	}
	return runResponse{OK: true, Tape: tape}
}

func reason(err error) string {
	switch {
	case errors.Is(err, journal.ErrUnknownOp):
		return "unknown_op"
	case errors.Is(err, journal.ErrOutOfOrder):
		return "out_of_order"
	default:
		return "bad_command"
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(runResponse{Error: &runError{Step: -1, Reason: "marshal_failed", Message: err.Error()}})
	}
	return string(b)
}
