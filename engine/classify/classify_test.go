package classify

import (
	"testing"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

var knownNames = []string{"Maria", "João"}

func TestClassify_MentionWithQuestionMarkShortCircuits(t *testing.T) {
	// Rule 1: known character + "?" wins regardless of any other signal,
	// even when the input is otherwise pure action.
	inputs := []string{
		"Maria?",
		"Maria, você está bem?",
		"Abro a porta e pergunto: Maria?",
		"Maria!",
	}
	for _, input := range inputs {
		got := Classify(input, knownNames)
		if got.Kind != types.KindCharacter {
			t.Errorf("Classify(%q) = %v, want character", input, got.Kind)
		}
		if got.Target != "Maria" {
			t.Errorf("Classify(%q) target = %q, want Maria", input, got.Target)
		}
	}
}

func TestClassify_DefaultIsNarrator(t *testing.T) {
	inputs := []string{
		"O tempo passou lentamente.",
		"A cidade dormia sob a neblina.",
	}
	for _, input := range inputs {
		got := Classify(input, knownNames)
		if got.Kind != types.KindNarrator {
			t.Errorf("Classify(%q) = %v, want narrator", input, got.Kind)
		}
	}
}

func TestClassify_Cascade(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.InputKind
	}{
		{
			name:  "strong dialog alone",
			input: "olá, tudo bem por aqui",
			want:  types.KindCharacter,
		},
		{
			name:  "strong dialog plus action",
			input: "vou até a janela e digo: você viu aquilo",
			want:  types.KindCharacterWithNarration,
		},
		{
			name:  "mention plus dialog verb",
			input: "sussurro para Maria que está tudo bem",
			want:  types.KindCharacter,
		},
		{
			name:  "action only",
			input: "entrar na casa pela porta dos fundos",
			want:  types.KindNarrator,
		},
		{
			name:  "action plus quotes",
			input: `abrir a porta dizendo "quem está aí"`,
			want:  types.KindCharacterWithNarration,
		},
		{
			name:  "dialog verb only",
			input: "respondo que não sabia de nada",
			want:  types.KindCharacter,
		},
		{
			name:  "quotes only",
			input: `"não era para ser assim"`,
			want:  types.KindCharacter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input, knownNames)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.input, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_StrongDialogMatchesWholeWordsOnly(t *testing.T) {
	// "me" must not fire inside "lentamente"; "ei" must not fire in "aceito".
	got := Classify("O rio corria lentamente", nil)
	if got.Kind != types.KindNarrator {
		t.Errorf("substring of a strong-dialog word misclassified: %v", got.Kind)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input       string
		movement    bool
		interaction bool
		speech      bool
		target      string
	}{
		{"pegar a chave", false, true, false, "a"},
		{"entrar na sala", true, false, false, ""},
		{"gritar por socorro", false, false, true, ""},
		{"usar lanterna agora", false, true, false, "lanterna"},
		{"olhar em volta", false, false, false, ""},
	}

	for _, tt := range tests {
		got := ParseAction(tt.input)
		if got.Movement != tt.movement || got.Interaction != tt.interaction || got.Speech != tt.speech {
			t.Errorf("ParseAction(%q) = %+v", tt.input, got)
		}
		if got.Target != tt.target {
			t.Errorf("ParseAction(%q) target = %q, want %q", tt.input, got.Target, tt.target)
		}
	}
}
