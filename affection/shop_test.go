package affection

import (
	"errors"
	"testing"
)

func perfume() PurchaseRequest {
	return PurchaseRequest{
		ItemID:    "perfume",
		Name:      "🐾 “Drake Memory” Perfume",
		Cost:      150,
		Affection: 75,
		Unique:    true,
		Effects: ItemEffects{
			Flags:         []string{"perfume"},
			AffectionMult: 1.1,
			Lines:         []string{"✨ Buff: +10% affection gains (passive)"},
		},
	}
}

func TestPurchase_InsufficientHeartsChangesNothing(t *testing.T) {
	h := newHarness(t, alwaysPopup(), func(s *State) {
		s.Hearts = Finite(10)
		s.PopupCooldown = 1
	})
	_, err := h.e.Purchase(perfume())
	if !errors.Is(err, ErrInsufficientHearts) {
		t.Fatalf("expected ErrInsufficientHearts, got %v", err)
	}
	snap := h.e.Snapshot()
	if snap.Hearts != "10" || snap.Affection != "0" || len(snap.Inventory) != 0 {
		t.Fatalf("rejected purchase changed state: %+v", snap)
	}
	if snap.State.PopupCooldown != 1 {
		t.Fatalf("random events must not run for a rejected purchase")
	}
	h.noModal(t)

	var rejected bool
	for _, ev := range h.events {
		if ev.Kind == EventDialogue && ev.Text == "Not enough hearts 😭 Go play mini games and come back." {
			rejected = true
		}
	}
	if !rejected {
		t.Fatalf("expected a rejection line")
	}
}

func TestPurchase_AppliesEffectsAndFeedback(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Hearts = Finite(200)
		s.Mood = MoodSad
	})
	r, err := h.e.Purchase(perfume())
	if err != nil {
		t.Fatalf("Purchase err: %v", err)
	}
	if r.AffectionGained != 75 {
		t.Fatalf("multiplier must apply after this purchase, got %d", r.AffectionGained)
	}
	snap := h.e.Snapshot()
	if snap.Hearts != "50" || snap.Affection != "75" || snap.Mood != MoodHappy {
		t.Fatalf("unexpected state %s/%s %s", snap.Hearts, snap.Affection, snap.Mood)
	}
	if snap.AffectionMult != 1.1 || !h.e.Owns("🐾 “Drake Memory” Perfume") {
		t.Fatalf("expected perfume owned with multiplier")
	}
	if len(snap.Flags) != 1 || snap.Flags[0] != "perfume" {
		t.Fatalf("expected perfume flag, got %v", snap.Flags)
	}
	if h.saw(EventGift) != 1 {
		t.Fatalf("expected gift feedback")
	}

	if _, err := h.e.Purchase(perfume()); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
}

func TestPurchase_BuffGrantsKeepLarger(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Hearts = Finite(500)
		s.TimedBuffs = Buffs{Comfort: 8}
	})
	feast := PurchaseRequest{
		ItemID: "koreanFeast", Name: "Korean Feast", Cost: 60, Affection: 100,
		Effects: ItemEffects{Buffs: Buffs{Comfort: 6}},
	}
	if _, err := h.e.Purchase(feast); err != nil {
		t.Fatalf("Purchase err: %v", err)
	}
	if got := h.e.Snapshot().Buffs.Comfort; got != 8 {
		t.Fatalf("expected the larger counter kept, got %d", got)
	}
	if _, err := h.e.Purchase(feast); err != nil {
		t.Fatalf("non-unique items can be bought again: %v", err)
	}
	if got := len(h.e.Snapshot().Inventory); got != 2 {
		t.Fatalf("expected two inventory entries, got %d", got)
	}
}

func TestPurchase_CertainBonusSkipsMultiplier(t *testing.T) {
	h := newHarness(t, testConfig(), func(s *State) {
		s.Hearts = Finite(100)
		s.AffectionMult = 1.1
	})
	r, err := h.e.Purchase(PurchaseRequest{
		ItemID: "dinner", Cost: 25, Affection: 40,
		Effects: ItemEffects{Bonus: &Bonus{Chance: 1, Affection: 5}},
	})
	if err != nil {
		t.Fatalf("Purchase err: %v", err)
	}
	if r.AffectionGained != 44 || r.BonusAffection != 5 {
		t.Fatalf("unexpected receipt %+v", r)
	}
	if got := h.e.Snapshot().Affection; got != "49" {
		t.Fatalf("expected 49 affection, got %s", got)
	}
}

func TestPurchase_UnlimitedHeartsNeverSpend(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.e.Debug().SetUnlimitedHearts(true)
	if _, err := h.e.Purchase(perfume()); err != nil {
		t.Fatalf("Purchase err: %v", err)
	}
	if got := h.e.Snapshot().Hearts; got != "∞" {
		t.Fatalf("expected ∞ hearts, got %s", got)
	}
}
