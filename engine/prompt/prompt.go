// Package prompt builds the text blocks sent to the generation service. All
// templates are in the story's language (Portuguese); the code around them
// stays neutral. Builders are pure functions over engine state.
package prompt

import (
	"fmt"
	"strings"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

// NarratorSystem is the system message for narration turns. stylePrompt
// comes from the story pack's narrator style; theme and genre from the
// story definition.
func NarratorSystem(stylePrompt, theme, genre string) string {
	var b strings.Builder
	b.WriteString("Você é o narrador de uma história interativa. Continue a narrativa de forma envolvente, em terceira pessoa, sem falar com o leitor diretamente.\n")
	if strings.TrimSpace(theme) != "" {
		fmt.Fprintf(&b, "Tema da história: %s\n", theme)
	}
	if strings.TrimSpace(genre) != "" {
		fmt.Fprintf(&b, "Gênero: %s\n", genre)
	}
	if strings.TrimSpace(stylePrompt) != "" {
		fmt.Fprintf(&b, "Estilo de narração: %s\n", stylePrompt)
	}
	return b.String()
}

// CharacterSystem is the system message for a character's dialogue turn.
// profileBlock is the profile store's rendered text.
func CharacterSystem(name, profileBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Você é %s em uma história interativa. Responda sempre em primeira pessoa, como o personagem falaria, em uma ou poucas frases. Nunca saia do personagem.\n", name)
	if strings.TrimSpace(profileBlock) != "" {
		b.WriteString("\nPerfil do personagem:\n")
		b.WriteString(profileBlock)
	}
	return b.String()
}

// SceneContext renders the current scene as context lines.
func SceneContext(scene types.SceneState) string {
	var b strings.Builder
	b.WriteString("Cena atual:\n")
	fmt.Fprintf(&b, "Local: %s\n", scene.Location)
	fmt.Fprintf(&b, "Horário: %s\n", scene.TimeOfDay)
	fmt.Fprintf(&b, "Clima emocional: %s\n", scene.Mood)
	if len(scene.Weather) > 0 {
		fmt.Fprintf(&b, "Tempo: %s\n", strings.Join(scene.Weather, ", "))
	}
	if len(scene.PresentCharacters) > 0 {
		fmt.Fprintf(&b, "Personagens presentes: %s\n", strings.Join(scene.PresentCharacters, ", "))
	}
	if len(scene.Elements) > 0 {
		fmt.Fprintf(&b, "Elementos notáveis: %s\n", strings.Join(scene.Elements, ", "))
	}
	return b.String()
}

// EventsContext renders the last events as context lines, oldest first.
func EventsContext(events []types.StoryEvent) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Acontecimentos recentes:\n")
	for _, ev := range events {
		who := "Narrador"
		switch {
		case ev.Character != "":
			who = ev.Character
		case ev.Type == types.EventUserInput:
			who = "Leitor"
		}
		fmt.Fprintf(&b, "- %s: %s\n", who, ev.Content)
	}
	return b.String()
}

// ContinueNarration is the user message asking the narrator to carry the
// story past the latest input.
func ContinueNarration(scene types.SceneState, recent []types.StoryEvent, input string) string {
	var b strings.Builder
	b.WriteString(SceneContext(scene))
	b.WriteString("\n")
	if ctx := EventsContext(recent); ctx != "" {
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "O leitor escreveu: %s\n\nContinue a história a partir daí.", input)
	return b.String()
}

// CharacterReply is the user message asking a character to answer the
// latest input addressed to them.
func CharacterReply(scene types.SceneState, recent []types.StoryEvent, input string) string {
	var b strings.Builder
	b.WriteString(SceneContext(scene))
	b.WriteString("\n")
	if ctx := EventsContext(recent); ctx != "" {
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "O leitor disse: %s\n\nResponda como o personagem.", input)
	return b.String()
}

// Reaction is the user message for a spontaneous reaction turn. It carries
// the trigger, the emotion detected on it, and the scene.
func Reaction(trigger string, triggerEmotion types.Emotion, scene types.SceneState, others []string) string {
	var b strings.Builder
	b.WriteString(SceneContext(scene))
	if len(others) > 0 {
		fmt.Fprintf(&b, "Também presentes: %s\n", strings.Join(others, ", "))
	}
	fmt.Fprintf(&b, "Emoção demonstrada: %s\n\n", triggerEmotion)
	fmt.Fprintf(&b, "%s\n", trigger)
	return b.String()
}
