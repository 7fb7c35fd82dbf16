package prompt

import (
	"strings"
	"testing"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

func sampleScene() types.SceneState {
	s := types.NewSceneState()
	s.Location = "floresta"
	s.TimeOfDay = "noite"
	s.Mood = "tenso"
	s.Weather = []string{"neblina"}
	s.PresentCharacters = []string{"Maria"}
	s.Elements = []string{"porta"}
	return s
}

func TestNarratorSystem_IncludesStoryIdentity(t *testing.T) {
	got := NarratorSystem("sombrio e pausado", "mistério", "suspense")
	for _, want := range []string{"narrador", "mistério", "suspense", "sombrio e pausado"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestNarratorSystem_OmitsEmptySections(t *testing.T) {
	got := NarratorSystem("", "", "")
	if strings.Contains(got, "Tema") || strings.Contains(got, "Gênero") || strings.Contains(got, "Estilo") {
		t.Errorf("empty fields must not render labels:\n%s", got)
	}
}

func TestCharacterSystem_EmbedsProfile(t *testing.T) {
	got := CharacterSystem("Maria", "Nome: Maria\nOcupação: detetive\n")
	if !strings.Contains(got, "Você é Maria") || !strings.Contains(got, "Ocupação: detetive") {
		t.Errorf("got:\n%s", got)
	}
}

func TestSceneContext_RendersAllSetFields(t *testing.T) {
	got := SceneContext(sampleScene())
	for _, want := range []string{"Local: floresta", "Horário: noite", "Clima emocional: tenso", "neblina", "Maria", "porta"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestEventsContext_AttributesSpeakers(t *testing.T) {
	got := EventsContext([]types.StoryEvent{
		{Type: types.EventNarration, Content: "A noite caía."},
		{Type: types.EventUserInput, Content: "Entro na floresta."},
		{Type: types.EventDialogue, Character: "Maria", Content: "Quem está aí?"},
	})
	for _, want := range []string{"Narrador: A noite caía.", "Leitor: Entro na floresta.", "Maria: Quem está aí?"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if EventsContext(nil) != "" {
		t.Error("no events renders nothing")
	}
}

func TestContinueNarration_CarriesInputAndContext(t *testing.T) {
	got := ContinueNarration(sampleScene(), []types.StoryEvent{
		{Type: types.EventNarration, Content: "A noite caía."},
	}, "Sigo pela trilha.")
	for _, want := range []string{"Local: floresta", "A noite caía.", "Sigo pela trilha.", "Continue a história"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestReaction_CarriesTriggerEmotionAndCast(t *testing.T) {
	got := Reaction("Reaja ao que Maria disse: Quem está aí?", types.EmotionWorried, sampleScene(), []string{"João"})
	for _, want := range []string{"Quem está aí?", "Emoção demonstrada: preocupado", "João", "Local: floresta"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}
