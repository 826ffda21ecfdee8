package affection

import "fmt"

type EventKind string

const (
	EventHUD         EventKind = "hud"
	EventDialogue    EventKind = "dialogue"
	EventModal       EventKind = "modal"
	EventModalClosed EventKind = "modal_closed"
	EventGift        EventKind = "gift"
	EventStage       EventKind = "stage"
	EventTrialStart  EventKind = "trial_start"
	EventTrial       EventKind = "trial"
	EventEndingScene EventKind = "ending_scene"
	EventEnding      EventKind = "ending"
)

// GiftEffect is the feedback shown after a successful purchase.
type GiftEffect struct {
	ItemID          string   `json:"itemId"`
	Name            string   `json:"name"`
	AffectionGained int64    `json:"affectionGained"`
	Buffs           Buffs    `json:"buffs"`
	Lines           []string `json:"lines,omitempty"`
	Unique          bool     `json:"unique"`
}

// Event is what the engine tells its host. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind     EventKind    `json:"kind"`
	Text     string       `json:"text,omitempty"`
	Modal    *Modal       `json:"modal,omitempty"`
	Snapshot *Snapshot    `json:"snapshot,omitempty"`
	Gift     *GiftEffect  `json:"gift,omitempty"`
	Stage    int          `json:"stage,omitempty"`
	Passed   bool         `json:"passed,omitempty"`
	Scene    *EndingScene `json:"scene,omitempty"`
	Path     Path         `json:"path,omitempty"`
}

type ModalKind string

const (
	ModalPopup        ModalKind = "popup"
	ModalTrialPrompt  ModalKind = "trial_prompt"
	ModalEndingPrompt ModalKind = "ending_prompt"
)

// IgnoreChoice answers a popup without picking any of its options.
const IgnoreChoice = -1

// Modal is the single open dialog. Popup is set for ModalPopup; Stage for
// ModalTrialPrompt.
type Modal struct {
	ID      string    `json:"id"`
	Kind    ModalKind `json:"kind"`
	Title   string    `json:"title"`
	Text    string    `json:"text"`
	Stage   int       `json:"stage,omitempty"`
	Popup   *Popup    `json:"popup,omitempty"`
	Choices []string  `json:"choices"`
}

func (e *Engine) openModalLocked(m Modal) {
	e.modalSeq++
	m.ID = fmt.Sprintf("modal_%d", e.modalSeq)
	e.modal = &m
	mc := m
	e.emitLocked(Event{Kind: EventModal, Modal: &mc})
	e.renderLocked()
}

// takeModalLocked closes the open modal if it matches id and kind.
// peekModalLocked returns the open modal if it matches id and one of kinds,
// leaving it open.
func (e *Engine) peekModalLocked(id string, kinds ...ModalKind) (Modal, error) {
	if e.modal == nil || e.modal.ID != id {
		return Modal{}, ErrStaleModal
	}
	match := len(kinds) == 0
	for _, k := range kinds {
		if e.modal.Kind == k {
			match = true
			break
		}
	}
	if !match {
		return Modal{}, ErrStaleModal
	}
	return *e.modal, nil
}

func (e *Engine) takeModalLocked(id string, kinds ...ModalKind) (Modal, error) {
	m, err := e.peekModalLocked(id, kinds...)
	if err != nil {
		return Modal{}, err
	}
	e.modal = nil
	e.emitLocked(Event{Kind: EventModalClosed, Modal: &m})
	e.renderLocked()
	return m, nil
}
