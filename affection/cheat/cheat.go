// Package cheat is the hidden developer menu. It is the only caller of
// the engine's debug hooks.
package cheat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"minyoung-maker/affection"
)

var ErrUnknownCommand = errors.New("unknown cheat command")

type Command struct {
	Name string
	Args []string
}

// Parse reads a menu line such as "trial 3 pass" or "set-affection 3000".
func Parse(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// Apply runs cmd. Like any other modal, the menu is refused while a
// mini-game, trial or ending is running.
func Apply(e *affection.Engine, cmd Command) error {
	if !e.CanInterrupt() {
		return affection.ErrBusy
	}
	d := e.Debug()
	switch cmd.Name {
	case "hearts":
		on, err := toggle(cmd)
		if err != nil {
			return err
		}
		d.SetUnlimitedHearts(on)
	case "affection":
		on, err := toggle(cmd)
		if err != nil {
			return err
		}
		d.SetUnlimitedAffection(on)
	case "add-hearts":
		n, err := number(cmd)
		if err != nil {
			return err
		}
		d.AddHearts(n)
	case "add-affection":
		n, err := number(cmd)
		if err != nil {
			return err
		}
		d.AddAffection(n)
	case "set-affection":
		n, err := number(cmd)
		if err != nil {
			return err
		}
		d.SetAffection(n)
	case "trial":
		if len(cmd.Args) != 2 {
			return fmt.Errorf("usage: trial <2|3|4> <pass|clear>")
		}
		stage, err := strconv.Atoi(cmd.Args[0])
		if err != nil {
			return fmt.Errorf("bad stage %q", cmd.Args[0])
		}
		passed, err := passOrClear(cmd.Args[1])
		if err != nil {
			return err
		}
		return d.SetTrialPassed(stage, passed)
	case "trials":
		if len(cmd.Args) != 1 {
			return fmt.Errorf("usage: trials <pass|clear>")
		}
		passed, err := passOrClear(cmd.Args[0])
		if err != nil {
			return err
		}
		d.SetAllTrials(passed)
	case "prompt":
		n, err := number(cmd)
		if err != nil {
			return err
		}
		return d.ForceTrialPrompt(int(n))
	case "ending":
		return d.ForceEndingPrompt()
	case "reset":
		d.Reset()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	return nil
}

// Menu is the text shown when the menu opens.
func Menu(s affection.Snapshot) string {
	var b strings.Builder
	b.WriteString("🛠️ Dev Cheats\n\n")
	fmt.Fprintf(&b, "Unlimited Hearts: %s\n", onOff(s.Cheats.UnlimitedHearts))
	fmt.Fprintf(&b, "Unlimited Affection: %s\n\n", onOff(s.Cheats.UnlimitedAffection))
	b.WriteString("hearts on|off\naffection on|off\nadd-hearts N\nadd-affection N\nset-affection N\n")
	b.WriteString("trial 2|3|4 pass|clear\ntrials pass|clear\nprompt 2|3|4\nending\nreset\n")
	return b.String()
}

func toggle(cmd Command) (bool, error) {
	if len(cmd.Args) != 1 {
		return false, fmt.Errorf("usage: %s on|off", cmd.Name)
	}
	switch cmd.Args[0] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("usage: %s on|off", cmd.Name)
}

func number(cmd Command) (int64, error) {
	if len(cmd.Args) != 1 {
		return 0, fmt.Errorf("usage: %s N", cmd.Name)
	}
	n, err := strconv.ParseInt(cmd.Args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", cmd.Args[0])
	}
	return n, nil
}

func passOrClear(s string) (bool, error) {
	switch s {
	case "pass":
		return true, nil
	case "clear":
		return false, nil
	}
	return false, fmt.Errorf("expected pass or clear, got %q", s)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
