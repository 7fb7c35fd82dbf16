// Package engine provides the Step() orchestrator that wires together
// classification, event recording, prompt building, generation,
// verification, scene projection, and the reaction cascade into a single
// story turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trsystems/TaleWeaver-sub000/engine/classify"
	"github.com/trsystems/TaleWeaver-sub000/engine/emotion"
	"github.com/trsystems/TaleWeaver-sub000/engine/history"
	"github.com/trsystems/TaleWeaver-sub000/engine/profile"
	"github.com/trsystems/TaleWeaver-sub000/engine/prompt"
	"github.com/trsystems/TaleWeaver-sub000/engine/react"
	"github.com/trsystems/TaleWeaver-sub000/engine/scene"
	"github.com/trsystems/TaleWeaver-sub000/engine/verify"
	"github.com/trsystems/TaleWeaver-sub000/llm"
	"github.com/trsystems/TaleWeaver-sub000/loader"
	"github.com/trsystems/TaleWeaver-sub000/types"
	"github.com/trsystems/TaleWeaver-sub000/voice"
)

const recentEventsWindow = 5

// Generator issues generation calls. Satisfied by *llm.Client.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Options configures a new Engine. Defs, History, Profiles, and Generator
// are required.
type Options struct {
	Defs      *loader.Defs
	History   *history.Store
	Profiles  *profile.Store
	Generator Generator
	Voice     *voice.Dispatcher

	Seed           int64
	Temperature    float64
	NarratorTokens int
	DialogueTokens int
	Stream         bool

	Logf func(format string, args ...any)
}

// Engine drives one story session. All state hangs off this value; there
// are no package-level globals. Not safe for concurrent use.
type Engine struct {
	Defs     *loader.Defs
	History  *history.Store
	Profiles *profile.Store
	Scene    types.SceneState
	RNG      *RNG

	gen       Generator
	verifier  *verify.Verifier
	scheduler *react.Scheduler
	voice     *voice.Dispatcher

	narrator string // current narrator style id
	turn     int

	temperature    float64
	narratorTokens int
	dialogueTokens int
	stream         bool
	logf           func(format string, args ...any)
}

// New creates an engine from definitions and wired components.
func New(opts Options) (*Engine, error) {
	if opts.Defs == nil {
		return nil, errors.New("engine: story definitions are required")
	}
	if opts.History == nil {
		return nil, errors.New("engine: history store is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("engine: profile store is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("engine: generator is required")
	}
	if opts.Voice == nil {
		opts.Voice = voice.NewDispatcher(nil)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.NarratorTokens == 0 {
		opts.NarratorTokens = 500
	}
	if opts.DialogueTokens == 0 {
		opts.DialogueTokens = 200
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}

	rng := NewRNG(opts.Seed)
	e := &Engine{
		Defs:           opts.Defs,
		History:        opts.History,
		Profiles:       opts.Profiles,
		Scene:          types.NewSceneState(),
		RNG:            rng,
		gen:            opts.Generator,
		verifier:       verify.New(opts.Generator),
		scheduler:      react.NewScheduler(rng),
		voice:          opts.Voice,
		narrator:       opts.Defs.Story.Narrator,
		temperature:    opts.Temperature,
		narratorTokens: opts.NarratorTokens,
		dialogueTokens: opts.DialogueTokens,
		stream:         opts.Stream,
		logf:           opts.Logf,
	}
	e.verifier.Logf = opts.Logf
	return e, nil
}

// RestoreScene applies a persisted settings row, typically right after
// loading the history store.
func (e *Engine) RestoreScene(st history.Settings) {
	s := types.NewSceneState()
	if st.Location != "" {
		s.Location = st.Location
	}
	if st.TimeOfDay != "" {
		s.TimeOfDay = st.TimeOfDay
	}
	if st.Mood != "" {
		s.Mood = st.Mood
	}
	s.PresentCharacters = append([]string(nil), st.PresentCharacters...)
	e.Scene = s
	e.turn = e.History.Len()

	// Resume the reaction schedule exactly where the last session stopped.
	if st.RNGSeed != 0 {
		e.RNG = RestoreRNG(st.RNGSeed, st.RNGPosition)
		e.scheduler = react.NewScheduler(e.RNG)
	}
}

// Turn reports how many events the session has appended.
func (e *Engine) Turn() int { return e.turn }

// Narrator returns the current narrator style id.
func (e *Engine) Narrator() string { return e.narrator }

// SetNarrator switches the narrator style.
func (e *Engine) SetNarrator(id string) error {
	if _, ok := e.Defs.Narrators[id]; !ok {
		return fmt.Errorf("engine: unknown narrator style %q", id)
	}
	e.narrator = id
	return nil
}

// knownNames is every character the story pack declares.
func (e *Engine) knownNames() []string {
	return e.Defs.CharacterOrder
}

// Begin records the story intro as the opening narration if the session is
// empty. It returns the intro text, or "" when the story already has events.
func (e *Engine) Begin(ctx context.Context) (string, []string) {
	if e.History.Len() > 0 || strings.TrimSpace(e.Defs.Story.Intro) == "" {
		return "", nil
	}
	var warnings []string
	e.appendNarration(ctx, e.Defs.Story.Intro, &warnings)
	return e.Defs.Story.Intro, warnings
}

// Step processes one line of reader input and returns everything the turn
// produced. Generation failure surfaces as an error with prior state kept;
// persistence failures degrade to warnings.
func (e *Engine) Step(ctx context.Context, input string) (types.Result, error) {
	var result types.Result

	input = strings.TrimSpace(input)
	if input == "" {
		return result, errors.New("engine: empty input")
	}

	// 1. Classify the input against the declared cast.
	cls := classify.Classify(input, e.knownNames())
	result.Classification = cls

	// 2. Record the reader's input.
	if _, err := e.History.AddEvent(ctx, types.EventUserInput, input, "", e.Scene); err != nil {
		result.Warnings = append(result.Warnings, persistenceWarning(err))
	}
	e.scheduler.Record("", input)

	// 3. Run the primary generation for the classified kind. The last
	// utterance of the turn becomes the reaction trigger.
	var trigger types.Utterance
	switch cls.Kind {
	case types.KindCharacter:
		utt, err := e.characterTurn(ctx, cls.Target, prompt.CharacterReply(e.Scene, e.History.Recent(recentEventsWindow), input), &result.Warnings)
		if err != nil {
			return result, err
		}
		result.Utterances = append(result.Utterances, utt)
		trigger = utt

	case types.KindCharacterWithNarration:
		utt, err := e.characterTurn(ctx, cls.Target, prompt.CharacterReply(e.Scene, e.History.Recent(recentEventsWindow), input), &result.Warnings)
		if err != nil {
			return result, err
		}
		result.Utterances = append(result.Utterances, utt)

		narr, err := e.narratorTurn(ctx, input, &result.Warnings)
		if err != nil {
			return result, err
		}
		result.Utterances = append(result.Utterances, narr)
		trigger = narr

	default:
		narr, err := e.narratorTurn(ctx, input, &result.Warnings)
		if err != nil {
			return result, err
		}
		result.Utterances = append(result.Utterances, narr)
		trigger = narr
	}

	// 4. Reaction cascade: one draw per present non-speaker, all weighed
	// against the trigger's detected emotion, sequentially through the same
	// generate/verify/append pipeline.
	reactions := e.scheduler.Evaluate(e.Scene.PresentCharacters, trigger.Emotion, trigger.Speaker, trigger.Text)
	for _, d := range reactions {
		if !d.ShouldReact {
			continue
		}
		msg := prompt.Reaction(d.Prompt, trigger.Emotion, e.Scene, others(e.Scene.PresentCharacters, d.Character))
		utt, err := e.characterTurn(ctx, d.Character, msg, &result.Warnings)
		if err != nil {
			// A failed reaction ends the cascade but not the turn.
			result.Warnings = append(result.Warnings, fmt.Sprintf("reação de %s falhou: %v", d.Character, err))
			break
		}
		result.Utterances = append(result.Utterances, utt)
	}

	// 5. Snapshot the scene into the settings row.
	e.saveSettings(ctx, &result.Warnings)
	e.turn = e.History.Len()

	return result, nil
}

// narratorTurn generates and records one narration beat.
func (e *Engine) narratorTurn(ctx context.Context, input string, warnings *[]string) (types.Utterance, error) {
	style := e.Defs.Narrators[e.narrator]
	req := llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: prompt.NarratorSystem(style.Prompt, e.Defs.Story.Theme, e.Defs.Story.Genre)},
			{Role: "user", Content: prompt.ContinueNarration(e.Scene, e.History.Recent(recentEventsWindow), input)},
		},
		Temperature: e.temperature,
		MaxTokens:   e.narratorTokens,
		Stream:      e.stream,
	}
	text, err := e.gen.Generate(ctx, req)
	if err != nil {
		return types.Utterance{}, err
	}

	e.appendNarration(ctx, text, warnings)
	e.scheduler.Record("", text)

	mood, _ := emotion.Analyze(text)
	e.voice.Dispatch(text, style.Voice, emotion.Params(mood))
	return types.Utterance{Text: text, Emotion: mood}, nil
}

// appendNarration records a narration event and projects it onto the scene.
func (e *Engine) appendNarration(ctx context.Context, text string, warnings *[]string) {
	e.Scene = scene.Project(e.Scene, text, e.knownNames())
	if _, err := e.History.AddEvent(ctx, types.EventNarration, text, "", e.Scene); err != nil {
		*warnings = append(*warnings, persistenceWarning(err))
	}
}

// characterTurn generates a verified character reply and records it as a
// dialogue event. Only character replies go through the consistency check.
func (e *Engine) characterTurn(ctx context.Context, name, userMsg string, warnings *[]string) (types.Utterance, error) {
	if name == "" {
		name = e.firstPresent()
	}
	if name == "" {
		return types.Utterance{}, errors.New("engine: no character to address")
	}

	p, _ := e.Profiles.GetOrCreate(name)
	system := prompt.CharacterSystem(name, e.Profiles.RenderForPrompt(name, true))

	produce := func(ctx context.Context, temp float64) (string, error) {
		return e.gen.Generate(ctx, llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: system},
				{Role: "user", Content: userMsg},
			},
			Temperature: temp,
			MaxTokens:   e.dialogueTokens,
			Stream:      e.stream,
		})
	}

	lastEvent := ""
	if recent := e.History.Recent(1); len(recent) == 1 {
		lastEvent = recent[0].Content
	}
	vctx := verify.Context{
		Name:      name,
		History:   p.Background.History,
		Emotions:  p.DynamicState.CurrentEmotions,
		Fears:     p.Personality.Fears,
		Goals:     p.DynamicState.CurrentGoals,
		LastEvent: lastEvent,
	}
	text, _, err := e.verifier.GenerateVerified(ctx, vctx, produce, e.temperature)
	if err != nil {
		return types.Utterance{}, err
	}

	if _, err := e.History.AddEvent(ctx, types.EventDialogue, text, name, e.Scene); err != nil {
		*warnings = append(*warnings, persistenceWarning(err))
	}
	if !e.Scene.HasCharacter(name) {
		e.Scene.PresentCharacters = append(e.Scene.PresentCharacters, name)
	}
	e.scheduler.Record(name, text)

	mood, _ := emotion.Analyze(text)
	e.voice.Dispatch(text, e.Defs.Characters[name].Voice, emotion.Params(mood))
	return types.Utterance{Speaker: name, Text: text, Emotion: mood}, nil
}

// RemoveEvent deletes the event at the zero-based position and re-derives
// the scene from the most recent remaining narration.
func (e *Engine) RemoveEvent(ctx context.Context, index int) (types.StoryEvent, []string, error) {
	var warnings []string
	ev, err := e.History.Remove(ctx, index)
	if err != nil {
		if errors.Is(err, history.ErrPersistence) {
			warnings = append(warnings, persistenceWarning(err))
		} else {
			return types.StoryEvent{}, nil, err
		}
	}

	e.Scene = types.NewSceneState()
	if last, ok := e.History.LastNarration(); ok {
		e.Scene = scene.Project(e.Scene, last.Content, e.knownNames())
	}
	e.saveSettings(ctx, &warnings)
	e.turn = e.History.Len()
	return ev, warnings, nil
}

// Undo removes the most recent event.
func (e *Engine) Undo(ctx context.Context) (types.StoryEvent, []string, error) {
	return e.RemoveEvent(ctx, e.History.Len()-1)
}

// AnalyzeProfile asks the generator for profile updates derived from the
// story events that mention the character, merges them, and returns the
// resulting profile. Requires a generator that can produce JSON.
func (e *Engine) AnalyzeProfile(ctx context.Context, name string) (types.CharacterProfile, error) {
	jg, ok := e.gen.(profile.JSONGenerator)
	if !ok {
		return types.CharacterProfile{}, errors.New("engine: generator cannot produce structured updates")
	}
	return e.Profiles.AnalyzeEvents(ctx, name, e.History.Events(), jg)
}

// Reset wipes the story and returns the scene to its defaults.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.History.ResetStory(ctx); err != nil {
		return err
	}
	e.Scene = scene.Reset()
	e.turn = 0
	return nil
}

func (e *Engine) firstPresent() string {
	if len(e.Scene.PresentCharacters) > 0 {
		return e.Scene.PresentCharacters[0]
	}
	if len(e.Defs.CharacterOrder) > 0 {
		return e.Defs.CharacterOrder[0]
	}
	return ""
}

func (e *Engine) saveSettings(ctx context.Context, warnings *[]string) {
	err := e.History.SaveSettings(ctx, history.Settings{
		Theme:             e.Defs.Story.Theme,
		Genre:             e.Defs.Story.Genre,
		Location:          e.Scene.Location,
		TimeOfDay:         e.Scene.TimeOfDay,
		Mood:              e.Scene.Mood,
		PresentCharacters: e.Scene.PresentCharacters,
		RNGSeed:           e.RNG.Seed(),
		RNGPosition:       e.RNG.Position(),
	})
	if err != nil {
		*warnings = append(*warnings, persistenceWarning(err))
	}
}

func others(cast []string, except string) []string {
	var out []string
	for _, c := range cast {
		if !strings.EqualFold(c, except) {
			out = append(out, c)
		}
	}
	return out
}

func persistenceWarning(err error) string {
	return fmt.Sprintf("falha ao salvar (continuando em memória): %v", err)
}
