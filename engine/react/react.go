// Package react decides which present characters spontaneously respond to a
// story beat. Decisions are probabilistic: each candidate gets a chance score
// built from a fixed base plus emotion and recency bonuses, then a single
// uniform draw settles it. Nothing here is persisted; a decision lives for
// one evaluation cycle.
package react

import (
	"fmt"
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

// Rand is the entropy source for reaction draws. Injected so tests can pin
// the outcome.
type Rand interface {
	Float64() float64
}

const (
	baseChance     = 0.3
	highArousalUp  = 0.2
	lowArousalUp   = 0.1
	recentMention  = 0.2
	recencyLookup  = 3
	historyEntries = 5
)

// Interaction is one remembered exchange, used only for recency bonuses.
type Interaction struct {
	Speaker string
	Text    string
}

// Scheduler evaluates spontaneous reactions over a short sliding window of
// recent interactions.
type Scheduler struct {
	rng    Rand
	recent []Interaction
}

func NewScheduler(rng Rand) *Scheduler {
	return &Scheduler{rng: rng}
}

// Record appends an interaction to the window, evicting the oldest once the
// window holds five entries.
func (s *Scheduler) Record(speaker, text string) {
	s.recent = append(s.recent, Interaction{Speaker: speaker, Text: text})
	if len(s.recent) > historyEntries {
		s.recent = s.recent[len(s.recent)-historyEntries:]
	}
}

// Recent returns a copy of the interaction window, newest last.
func (s *Scheduler) Recent() []Interaction {
	out := make([]Interaction, len(s.recent))
	copy(out, s.recent)
	return out
}

// Chance computes the reaction chance for a character given the emotion
// detected on the triggering utterance. The sum is deliberately not clamped:
// a high-arousal trigger naming a recently addressed character can exceed
// 1.0 and force a reaction.
func (s *Scheduler) Chance(name string, trigger types.Emotion) float64 {
	chance := baseChance
	switch trigger {
	case types.EmotionExcited, types.EmotionAngry:
		chance += highArousalUp
	case types.EmotionWorried, types.EmotionSad:
		chance += lowArousalUp
	}
	if s.mentionedRecently(name) {
		chance += recentMention
	}
	return chance
}

func (s *Scheduler) mentionedRecently(name string) bool {
	lower := strings.ToLower(name)
	start := len(s.recent) - recencyLookup
	if start < 0 {
		start = 0
	}
	for _, it := range s.recent[start:] {
		if strings.Contains(strings.ToLower(it.Text), lower) {
			return true
		}
	}
	return false
}

// Evaluate rolls a reaction decision for every candidate except the
// character who produced the trigger. Every candidate is weighed against the
// same trigger emotion; the trigger text rides along in the prompt of
// positive decisions.
func (s *Scheduler) Evaluate(candidates []string, trigger types.Emotion, triggerSpeaker, triggerText string) []types.ReactionDecision {
	var out []types.ReactionDecision
	for _, name := range candidates {
		if strings.EqualFold(name, triggerSpeaker) {
			continue
		}
		d := types.ReactionDecision{Character: name}
		if s.rng.Float64() < s.Chance(name, trigger) {
			d.ShouldReact = true
			d.Prompt = reactionPrompt(triggerSpeaker, triggerText)
		}
		out = append(out, d)
	}
	return out
}

func reactionPrompt(speaker, text string) string {
	if speaker == "" {
		return fmt.Sprintf("Reaja brevemente, em uma ou duas frases, ao que acabou de acontecer na história: %s", text)
	}
	return fmt.Sprintf("Reaja brevemente, em uma ou duas frases, ao que %s acabou de dizer: %s", speaker, text)
}
