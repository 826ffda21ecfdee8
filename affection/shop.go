package affection

import "strings"

// Bonus is an extra affection roll on purchase. It bypasses the multiplier.
type Bonus struct {
	Chance    float64 `json:"chance"`
	Affection int64   `json:"affection"`
	// Spread adds a uniform 0..Spread-1 on top of Affection.
	Spread int64 `json:"spread,omitempty"`
}

type ItemEffects struct {
	Flags         []string `json:"flags,omitempty"`
	AffectionMult float64  `json:"affectionMult,omitempty"`
	Buffs         Buffs    `json:"buffs"`
	Bonus         *Bonus   `json:"bonus,omitempty"`
	// Lines are shown in the gift feedback.
	Lines []string `json:"lines,omitempty"`
}

// PurchaseRequest is one shop purchase. Name is what goes into the
// inventory and what uniqueness is checked against.
type PurchaseRequest struct {
	ItemID    string
	Name      string
	Cost      int64
	Affection int64
	Unique    bool
	Effects   ItemEffects
}

type Receipt struct {
	ItemID          string
	AffectionGained int64
	BonusAffection  int64
	Buffs           Buffs
	PopupOpened     bool
}

// Purchase spends hearts on a gift. An unaffordable gift is rejected with a
// dialogue line and ErrInsufficientHearts; nothing else changes.
func (e *Engine) Purchase(req PurchaseRequest) (Receipt, error) {
	e.mu.Lock()
	defer e.unlock()

	if req.Name == "" {
		req.Name = req.ItemID
	}
	e.touchActionLocked()

	if req.Unique && e.state.owns(req.Name) {
		return Receipt{}, ErrAlreadyOwned
	}
	if !e.state.Hearts.Covers(req.Cost) {
		e.sayLocked("Not enough hearts 😭 Go play mini games and come back.")
		return Receipt{}, ErrInsufficientHearts
	}

	e.state.Hearts = e.state.Hearts.Add(-max(req.Cost, 0))
	gained := e.creditLocked(0, max(req.Affection, 0))
	e.state.Inventory = append(e.state.Inventory, req.Name)

	fx := req.Effects
	for _, f := range fx.Flags {
		e.state.Flags[f] = true
	}
	if fx.AffectionMult > 0 {
		e.state.AffectionMult = fx.AffectionMult
	}
	e.state.TimedBuffs.merge(fx.Buffs)
	var bonus int64
	if b := fx.Bonus; b != nil && e.rng.Float64() < b.Chance {
		bonus = b.Affection
		if b.Spread > 0 {
			bonus += e.rng.Int63n(b.Spread)
		}
		e.state.Affection = e.state.Affection.Add(bonus)
	}

	e.setMoodLocked(MoodHappy)
	e.sayLocked("Minyoung received a gift… and her mood instantly improved 💗")
	e.state.enforceCheats()
	e.persistLocked()
	e.recomputeLocked()

	gift := &GiftEffect{
		ItemID:          req.ItemID,
		Name:            req.Name,
		AffectionGained: gained,
		Buffs:           fx.Buffs,
		Lines:           append([]string(nil), fx.Lines...),
		Unique:          req.Unique,
	}
	e.emitLocked(Event{Kind: EventGift, Gift: gift, Text: strings.Join(gift.Lines, "\n")})

	opened := e.maybeTriggerPopupLocked(PopupAfterGift)
	return Receipt{
		ItemID:          req.ItemID,
		AffectionGained: gained,
		BonusAffection:  bonus,
		Buffs:           fx.Buffs,
		PopupOpened:     opened,
	}, nil
}
