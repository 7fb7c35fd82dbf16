// Package types defines the shared data structures for the TaleWeaver engine.
// This package contains only type definitions — no logic, no methods beyond
// trivial accessors.
package types

import "time"

// EventType tags a story event with its narrative role.
type EventType string

const (
	EventNarration EventType = "narration"
	EventDialogue  EventType = "dialogue"
	EventUserInput EventType = "user_input"
	EventContext   EventType = "context"
)

// StoryEvent is one immutable, ordered record of something that happened.
// Seq is assigned at append time and is the only ordering guarantee.
// The scene fields are a snapshot of SceneState at the moment of recording.
type StoryEvent struct {
	Seq       int64     `json:"seq"`
	Type      EventType `json:"type"`
	Content   string    `json:"content"`
	Character string    `json:"character,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
	TimeOfDay string    `json:"time_of_day"`
	Mood      string    `json:"mood"`
	Elements  []string  `json:"elements,omitempty"`
}

// Default scene attribute values before any narration has established them.
const (
	UnknownLocation  = "Indefinido"
	UnknownTimeOfDay = "Indefinido"
	NeutralMood      = "Neutro"
)

// SceneState is the derived snapshot of where/when/mood/who for the ongoing
// scene. One mutable instance exists per story session, owned by the Event
// Store and updated only through the projector.
type SceneState struct {
	Location          string   `json:"location"`
	TimeOfDay         string   `json:"time_of_day"`
	Mood              string   `json:"mood"`
	Weather           []string `json:"weather,omitempty"`
	PresentCharacters []string `json:"present_characters,omitempty"`
	LastAction        string   `json:"last_action,omitempty"`
	Description       string   `json:"description,omitempty"`
	Elements          []string `json:"elements,omitempty"`
}

// NewSceneState returns a scene with all attributes unestablished.
func NewSceneState() SceneState {
	return SceneState{
		Location:  UnknownLocation,
		TimeOfDay: UnknownTimeOfDay,
		Mood:      NeutralMood,
	}
}

// HasCharacter reports whether name is in the present cast.
func (s SceneState) HasCharacter(name string) bool {
	for _, c := range s.PresentCharacters {
		if c == name {
			return true
		}
	}
	return false
}

// BasicInfo holds a character's static identity facts.
type BasicInfo struct {
	Occupation  string `json:"occupation"`
	Appearance  string `json:"appearance"`
	VoiceTraits string `json:"voice_traits"`
	Age         string `json:"age"`
	Origin      string `json:"origin"`
}

// Personality holds a character's stable disposition.
type Personality struct {
	Traits  []string `json:"traits"`
	Values  []string `json:"values"`
	Fears   []string `json:"fears"`
	Desires []string `json:"desires"`
}

// Background holds a character's established past.
type Background struct {
	History       string            `json:"history"`
	KeyEvents     []string          `json:"key_events"`
	Relationships map[string]string `json:"relationships"`
	Traumas       []string          `json:"traumas"`
	Achievements  []string          `json:"achievements"`
}

// Abilities holds what a character can do.
type Abilities struct {
	Skills      []string `json:"skills"`
	Knowledge   []string `json:"knowledge"`
	Specialties []string `json:"specialties"`
}

// DynamicState holds the parts of a profile that evolve with the story.
type DynamicState struct {
	CurrentEmotions      []string `json:"current_emotions"`
	CurrentGoals         []string `json:"current_goals"`
	RecentExperiences    []string `json:"recent_experiences"`
	CharacterDevelopment []string `json:"character_development"`
}

// CharacterProfile is the persistent structured description of a character.
// One profile exists per character name; it outlives any single session.
type CharacterProfile struct {
	Name         string       `json:"name"`
	BasicInfo    BasicInfo    `json:"basic_info"`
	Personality  Personality  `json:"personality"`
	Background   Background   `json:"background"`
	Abilities    Abilities    `json:"abilities"`
	DynamicState DynamicState `json:"dynamic_state"`
	LastUpdated  time.Time    `json:"last_updated"`
}

// ProfileUpdates is a partial profile used for merge-updates. Nil sub-structs
// mean "no change"; list fields are unioned, scalar fields overwrite when
// non-empty.
type ProfileUpdates struct {
	BasicInfo    *BasicInfo    `json:"basic_info,omitempty"`
	Personality  *Personality  `json:"personality,omitempty"`
	Background   *Background   `json:"background,omitempty"`
	Abilities    *Abilities    `json:"abilities,omitempty"`
	DynamicState *DynamicState `json:"dynamic_state,omitempty"`
}

// InputKind is how a human input should be interpreted downstream.
type InputKind int

const (
	// KindNarrator treats the input as third-person narration.
	KindNarrator InputKind = iota
	// KindCharacter treats the input as first-person dialogue to a character.
	KindCharacter
	// KindCharacterWithNarration mixes dialogue with narrated action.
	KindCharacterWithNarration
)

func (k InputKind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindCharacterWithNarration:
		return "character_with_narration"
	default:
		return "narrator"
	}
}

// Classification is the ephemeral result of classifying one human input.
// Target is the first known character mentioned, if any.
type Classification struct {
	Kind   InputKind
	Target string
}

// ActionInfo is the companion action-parser result for one input.
type ActionInfo struct {
	Movement    bool
	Interaction bool
	Speech      bool
	Target      string
}

// Emotion is the detected affect of a piece of text.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutro"
	EmotionHappy      Emotion = "feliz"
	EmotionSad        Emotion = "triste"
	EmotionAngry      Emotion = "bravo"
	EmotionWorried    Emotion = "preocupado"
	EmotionExcited    Emotion = "animado"
	EmotionThoughtful Emotion = "pensativo"
	EmotionPlayful    Emotion = "brincalhão"
)

// ReactionDecision is produced per reaction-evaluation cycle and discarded
// after use; it is never persisted.
type ReactionDecision struct {
	Character   string
	ShouldReact bool
	Prompt      string
}

// Utterance is one generated piece of story output, ready for display and
// voice synthesis.
type Utterance struct {
	Speaker string // empty for the narrator
	Text    string
	Emotion Emotion
}

// Result is the output of a single story turn.
type Result struct {
	Classification Classification
	Utterances     []Utterance
	Warnings       []string // non-fatal degradations (persistence, voice)
}
