package journal

import (
	"fmt"

	"minyoung-maker/affection"
	"minyoung-maker/affection/cheat"
	"minyoung-maker/affection/script"
)

// Reply carries whatever a command returns besides an error.
type Reply struct {
	Receipt  *affection.Receipt  `json:"receipt,omitempty"`
	Done     bool                `json:"done,omitempty"`
	Text     string              `json:"text,omitempty"`
	Snapshot *affection.Snapshot `json:"snapshot,omitempty"`
}

// Driver applies commands to one engine and keeps the handles of the
// run in progress. It is not safe for concurrent use; sessions call it
// from their own goroutine.
type Driver struct {
	e    *affection.Engine
	shop *script.Registry

	game   *affection.MiniGameRun
	trial  *affection.TrialRun
	ending *affection.EndingRun
}

func NewDriver(e *affection.Engine, shop *script.Registry) *Driver {
	return &Driver{e: e, shop: shop}
}

func (d *Driver) Engine() *affection.Engine { return d.e }

func (d *Driver) Apply(cmd Command) (Reply, error) {
	if err := cmd.Check(); err != nil {
		return Reply{}, err
	}
	e := d.e
	switch cmd.Op {
	case OpTouch:
		e.TouchAction()
	case OpReward:
		e.ApplyRewards(cmd.Hearts, cmd.Affection)
	case OpMood:
		e.SetMood(affection.ParseMood(cmd.Mood))
	case OpRecompute:
		e.RecomputeStage()

	case OpPlay:
		run, err := e.StartMiniGame(cmd.Kind)
		if err != nil {
			return Reply{}, err
		}
		d.game = run
	case OpComplete:
		if d.game == nil {
			return Reply{}, ErrNoRun
		}
		res := affection.Result{Hearts: cmd.Hearts, Affection: cmd.Affection, Line: cmd.Line}
		if cmd.Mood != "" {
			res.Mood = affection.ParseMood(cmd.Mood)
		}
		run := d.game
		d.game = nil
		return Reply{}, run.Complete(res)
	case OpQuit:
		run := d.game
		d.clearRuns()
		if run != nil {
			return Reply{}, run.Quit()
		}
		e.Quit()
	case OpMenu:
		d.clearRuns()
		e.ReturnToMenu()

	case OpPopup:
		return Reply{Done: e.MaybeTriggerPopup(affection.ParsePopupContext(cmd.Context))}, nil
	case OpAnswer:
		id, err := d.modalID(cmd)
		if err != nil {
			return Reply{}, err
		}
		return Reply{}, e.AnswerPopup(id, cmd.Choice)
	case OpDecline:
		id, err := d.modalID(cmd)
		if err != nil {
			return Reply{}, err
		}
		return Reply{}, e.Decline(id)

	case OpEnterTrial:
		id, err := d.modalID(cmd)
		if err != nil {
			return Reply{}, err
		}
		run, err := e.EnterTrial(id)
		if err != nil {
			return Reply{}, err
		}
		d.trial = run
	case OpFinishTrial:
		if d.trial == nil {
			return Reply{}, affection.ErrTrialNotRunning
		}
		run := d.trial
		d.trial = nil
		return Reply{}, run.Finish(cmd.Passed, affection.Reward{Hearts: cmd.Hearts, Affection: cmd.Affection})
	case OpEnterEnding:
		id, err := d.modalID(cmd)
		if err != nil {
			return Reply{}, err
		}
		run, err := e.EnterEnding(id)
		if err != nil {
			return Reply{}, err
		}
		d.ending = run
	case OpChoose:
		if d.ending == nil {
			return Reply{}, ErrNoRun
		}
		done, err := d.ending.Choose(cmd.Choice)
		if done {
			d.ending = nil
		}
		return Reply{Done: done}, err

	case OpBuy:
		if d.shop == nil {
			return Reply{}, fmt.Errorf("%w: no shop loaded", ErrBadCommand)
		}
		req, err := d.shop.Request(cmd.Item)
		if err != nil {
			return Reply{}, err
		}
		receipt, err := e.Purchase(req)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Receipt: &receipt}, nil
	case OpIdle:
		return Reply{Done: e.CheckIdle()}, nil
	case OpCheat:
		if cmd.Line == "" {
			if !e.CanInterrupt() {
				return Reply{}, affection.ErrBusy
			}
			return Reply{Text: cheat.Menu(e.Snapshot())}, nil
		}
		c, err := cheat.Parse(cmd.Line)
		if err != nil {
			return Reply{}, err
		}
		return Reply{}, cheat.Apply(e, c)
	case OpSnapshot:
		snap := e.Snapshot()
		return Reply{Snapshot: &snap}, nil
	}
	return Reply{}, nil
}

// modalID resolves an empty modal reference to the open modal.
func (d *Driver) modalID(cmd Command) (string, error) {
	if cmd.Modal != "" {
		return cmd.Modal, nil
	}
	m, ok := d.e.Modal()
	if !ok {
		return "", ErrNoModal
	}
	return m.ID, nil
}

func (d *Driver) clearRuns() {
	d.game = nil
	d.trial = nil
	d.ending = nil
}
