package affection

import "strings"

type Mood string

const (
	MoodNeutral Mood = "neutral"
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodAngry   Mood = "angry"
)

// ParseMood normalizes anything unrecognized to neutral.
func ParseMood(s string) Mood {
	switch m := Mood(strings.ToLower(strings.TrimSpace(s))); m {
	case MoodNeutral, MoodHappy, MoodSad, MoodAngry:
		return m
	default:
		return MoodNeutral
	}
}

func (m Mood) negative() bool { return m == MoodSad || m == MoodAngry }

type PopupContext string

const (
	PopupAny       PopupContext = "any"
	PopupAfterGame PopupContext = "afterGame"
	PopupAfterGift PopupContext = "afterGift"
	PopupHome      PopupContext = "home"
)

func ParsePopupContext(s string) PopupContext {
	switch c := PopupContext(strings.TrimSpace(s)); c {
	case PopupAfterGame, PopupAfterGift, PopupHome:
		return c
	default:
		return PopupAny
	}
}

const (
	MinStage = 1
	MaxStage = 4
)

var trialStages = [...]int{2, 3, 4}

func clampStage(n int) int {
	if n < MinStage {
		return MinStage
	}
	if n > MaxStage {
		return MaxStage
	}
	return n
}
