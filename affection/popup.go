package affection

import "fmt"

var popupReactions = map[Mood]string{
	MoodHappy:   "%s looks pleased. Her black black eyes are filled with joy 💗",
	MoodSad:     "%s goes quiet. Her black black eyes get watery. You feel like you missed something 😭",
	MoodAngry:   "%s's voice gets louder and louder... uh-oh, she's getting upset!",
	MoodNeutral: "%s is... watching you.",
}

// MaybeTriggerPopup is one random event opportunity. It reports whether a
// popup opened.
func (e *Engine) MaybeTriggerPopup(ctx PopupContext) bool {
	e.mu.Lock()
	defer e.unlock()
	return e.maybeTriggerPopupLocked(ctx)
}

func (e *Engine) maybeTriggerPopupLocked(ctx PopupContext) bool {
	if !e.arbiter.CanInterrupt() || e.modal != nil {
		return false
	}
	if e.state.PopupCooldown > 0 {
		e.state.PopupCooldown--
		e.persistLocked()
		return false
	}

	chance := e.cfg.popupChance(ctx)
	if e.state.TimedBuffs.Chaos > 0 && e.rng.Float64() < e.cfg.ChaosExtraChanceRoll {
		chance += e.cfg.ChaosExtraChance
	}
	if e.rng.Float64() >= chance {
		return false
	}

	pick := e.catalog.Popups[e.rng.Intn(len(e.catalog.Popups))]
	choices := make([]string, 0, len(pick.Options))
	for _, opt := range pick.Options {
		choices = append(choices, opt.Label)
	}
	p := pick
	e.openModalLocked(Modal{
		Kind:    ModalPopup,
		Title:   pick.Title,
		Text:    pick.Text,
		Popup:   &p,
		Choices: choices,
	})

	e.state.PopupCooldown = e.cfg.PopupCooldownSkips
	e.state.TimedBuffs.tick()
	e.persistLocked()
	return true
}

// AnswerPopup applies one option of the open popup, or IgnoreChoice.
func (e *Engine) AnswerPopup(modalID string, choice int) error {
	e.mu.Lock()
	defer e.unlock()

	if e.modal != nil && e.modal.ID == modalID && e.modal.Kind == ModalPopup {
		if choice != IgnoreChoice && (choice < 0 || choice >= len(e.modal.Popup.Options)) {
			return fmt.Errorf("%w: %d", ErrInvalidChoice, choice)
		}
	}
	m, err := e.takeModalLocked(modalID, ModalPopup)
	if err != nil {
		return err
	}
	e.touchActionLocked()

	if choice == IgnoreChoice {
		e.sayLocked("You ignored the moment. The universe is taking notes.")
		return nil
	}

	opt := m.Popup.Options[choice]
	e.creditLocked(opt.Hearts, opt.Affection)
	mood := e.rerollMoodLocked(ParseMood(string(opt.Mood)))
	e.setMoodLocked(mood)

	e.state.Hearts = e.state.Hearts.Floor(0)
	e.state.Affection = e.state.Affection.Floor(0)
	e.persistLocked()
	e.recomputeLocked()
	e.sayLocked(fmt.Sprintf(popupReactions[mood], e.cfg.Name))
	return nil
}

// rerollMoodLocked lets active buffs soften a requested mood. Comfort, then
// Charm, then Chaos; each roll is independent.
func (e *Engine) rerollMoodLocked(m Mood) Mood {
	b := e.state.TimedBuffs
	t := e.cfg.Buffs
	if b.Comfort > 0 && m.negative() {
		if e.rng.Float64() < t.ComfortNeutral {
			m = MoodNeutral
		}
		if e.rng.Float64() < t.ComfortHappy {
			m = MoodHappy
		}
	}
	if b.Charm > 0 && m != MoodHappy {
		if e.rng.Float64() < t.CharmHappy {
			m = MoodHappy
		}
	}
	if b.Chaos > 0 && m.negative() {
		if e.rng.Float64() < t.ChaosNeutral {
			m = MoodNeutral
		}
		if e.rng.Float64() < t.ChaosHappy {
			m = MoodHappy
		}
	}
	return m
}
