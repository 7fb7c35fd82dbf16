package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/trsystems/TaleWeaver-sub000/engine"
	"github.com/trsystems/TaleWeaver-sub000/engine/history"
	"github.com/trsystems/TaleWeaver-sub000/engine/profile"
	"github.com/trsystems/TaleWeaver-sub000/llm"
	"github.com/trsystems/TaleWeaver-sub000/loader"
	"github.com/trsystems/TaleWeaver-sub000/types"
)

// echoGen answers every generation with a fixed narration and every
// consistency check with "sim".
type echoGen struct{ reply string }

func (g echoGen) Generate(_ context.Context, req llm.Request) (string, error) {
	if strings.Contains(req.Messages[len(req.Messages)-1].Content, "revisor de coerência") {
		return "sim", nil
	}
	return g.reply, nil
}

// testDefs returns minimal story definitions for TUI testing.
func testDefs() *loader.Defs {
	return &loader.Defs{
		Story: loader.StoryDef{
			Title:    "História de Teste",
			Theme:    "mistério",
			Intro:    "A noite caía sobre a floresta escura.",
			Narrator: "sombrio",
		},
		Characters: map[string]loader.CharacterDef{
			"Maria": {Name: "Maria", Voice: "voz-maria"},
		},
		CharacterOrder: []string{"Maria"},
		Narrators: map[string]loader.NarratorDef{
			"sombrio": {ID: "sombrio", Description: "sombrio e pausado"},
			"leve":    {ID: "leve", Description: "leve e bem-humorado"},
		},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	profiles, err := profile.NewStore(t.TempDir(), map[string]profile.Seed{"Maria": {}})
	if err != nil {
		t.Fatalf("profile store: %v", err)
	}
	eng, err := engine.New(engine.Options{
		Defs:      testDefs(),
		History:   history.NewMemory(),
		Profiles:  profiles,
		Generator: echoGen{reply: "O vento soprava entre as árvores."},
		Seed:      999,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return New(context.Background(), eng)
}

func joinLines(lines []rawLine) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text
	}
	return strings.Join(texts, "\n")
}

func TestInitialOutput_TitleAndIntro(t *testing.T) {
	m := newTestModel(t)

	msg := m.initialOutput()()
	out, ok := msg.(storyOutputMsg)
	if !ok {
		t.Fatalf("expected storyOutputMsg, got %T", msg)
	}

	joined := joinLines(out.lines)
	if !strings.Contains(joined, "História de Teste") {
		t.Error("expected story title in initial output")
	}
	if !strings.Contains(joined, "A noite caía sobre a floresta escura.") {
		t.Error("expected intro text in initial output")
	}
	if out.lines[0].kind != kindTitle {
		t.Errorf("expected first line tagged as title, got %v", out.lines[0].kind)
	}
}

func TestStepStory_NarrationOutput(t *testing.T) {
	m := newTestModel(t)
	m.engine.Begin(m.ctx)

	msg := m.stepStory("O tempo passou.")()
	out, ok := msg.(storyOutputMsg)
	if !ok {
		t.Fatalf("expected storyOutputMsg, got %T", msg)
	}
	if !strings.Contains(joinLines(out.lines), "O vento soprava entre as árvores.") {
		t.Error("expected generated narration in output")
	}
}

func TestResultLines(t *testing.T) {
	result := types.Result{
		Utterances: []types.Utterance{
			{Text: "A porta rangeu."},
			{Speaker: "Maria", Text: "Quem está aí?"},
		},
		Warnings: []string{"aviso de persistência"},
	}

	lines := resultLines(result)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (narration, blank, dialogue, warning), got %d", len(lines))
	}
	if lines[0].kind != kindNarration || lines[0].text != "A porta rangeu." {
		t.Errorf("unexpected narration line: %+v", lines[0])
	}
	if lines[1].text != "" {
		t.Errorf("expected blank separator, got %q", lines[1].text)
	}
	if lines[2].kind != kindDialogue || lines[2].text != "Maria: Quem está aí?" {
		t.Errorf("unexpected dialogue line: %+v", lines[2])
	}
	if lines[3].kind != kindSystem || lines[3].text != "aviso de persistência" {
		t.Errorf("unexpected warning line: %+v", lines[3])
	}
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newTestModel(t)

	_, quit := m.handleMeta("/sair")
	if !quit {
		t.Error("expected quit=true for /sair")
	}

	_, quit = m.handleMeta("/quit")
	if !quit {
		t.Error("expected quit=true for /quit")
	}
}

func TestHandleMeta_SceneAndEvents(t *testing.T) {
	m := newTestModel(t)
	m.engine.Begin(m.ctx)

	lines, quit := m.handleMeta("/cena")
	if quit {
		t.Error("/cena should not quit")
	}
	joined := joinLines(lines)
	if !strings.Contains(joined, "Local: floresta") {
		t.Errorf("expected intro-derived location in scene output, got %q", joined)
	}
	if !strings.Contains(joined, "Horário: noite") {
		t.Errorf("expected intro-derived time in scene output, got %q", joined)
	}

	lines, _ = m.handleMeta("/eventos")
	if !strings.Contains(joinLines(lines), "1. [narration]") {
		t.Errorf("expected numbered intro event, got %q", joinLines(lines))
	}
}

func TestHandleMeta_NarratorSwitch(t *testing.T) {
	m := newTestModel(t)

	lines, _ := m.handleMeta("/narrador leve")
	if !strings.Contains(joinLines(lines), "Narrador alterado para leve.") {
		t.Errorf("expected switch confirmation, got %q", joinLines(lines))
	}
	if m.engine.Narrator() != "leve" {
		t.Errorf("expected narrator leve, got %s", m.engine.Narrator())
	}

	lines, _ = m.handleMeta("/narrador inexistente")
	if !strings.Contains(joinLines(lines), "Estilo desconhecido") {
		t.Errorf("expected unknown style message, got %q", joinLines(lines))
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newTestModel(t)

	lines, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if !strings.Contains(joinLines(lines), "Comando desconhecido") {
		t.Errorf("expected unknown command message, got %q", joinLines(lines))
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newTestModel(t)

	lines, _ := m.handleMeta("/ajuda")
	joined := joinLines(lines)
	for _, expected := range []string{"/historia", "/eventos", "/remover", "/narrador", "/sair"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestRenderLine_Dialogue(t *testing.T) {
	// The speaker prefix and the utterance get distinct styles; both parts
	// of the text must survive rendering.
	out := renderLine("Maria: Quem está aí?", kindDialogue)
	if !strings.Contains(out, "Maria:") || !strings.Contains(out, "Quem está aí?") {
		t.Errorf("dialogue text lost in rendering: %q", out)
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"curto", 80, "curto"},
		{"duas palavras", 6, "duas\npalavras"},
		{"A noite caía devagar sobre a floresta escura e silenciosa.", 20,
			"A noite caía devagar\nsobre a floresta\nescura e silenciosa."},
		{"", 80, ""},
		{"a b c d e", 3, "a b\nc d\ne"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("olhar ao redor")
	h.Push("seguir em frente")
	h.Push("/cena")

	prev, ok := h.Prev()
	if !ok || prev != "/cena" {
		t.Errorf("expected '/cena', got %q (ok=%v)", prev, ok)
	}

	prev, ok = h.Prev()
	if !ok || prev != "seguir em frente" {
		t.Errorf("expected 'seguir em frente', got %q (ok=%v)", prev, ok)
	}

	prev, ok = h.Prev()
	if !ok || prev != "olhar ao redor" {
		t.Errorf("expected 'olhar ao redor', got %q (ok=%v)", prev, ok)
	}

	// At oldest, stays there.
	prev, ok = h.Prev()
	if !ok || prev != "olhar ao redor" {
		t.Errorf("expected 'olhar ao redor' at boundary, got %q (ok=%v)", prev, ok)
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("primeiro")
	h.Push("segundo")

	h.Prev() // "segundo"
	h.Prev() // "primeiro"

	next, ok := h.Next()
	if !ok || next != "segundo" {
		t.Errorf("expected 'segundo', got %q (ok=%v)", next, ok)
	}

	_, ok = h.Next()
	if ok {
		t.Error("expected false when past newest entry")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c") // "a" evicted

	prev, _ := h.Prev()
	if prev != "c" {
		t.Errorf("expected 'c', got %q", prev)
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b', got %q", prev)
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b' at boundary, got %q", prev)
	}
}

func TestHistory_NoDuplicates(t *testing.T) {
	h := NewHistory(5)
	h.Push("olhar")
	h.Push("olhar")
	h.Push("olhar")

	if len(h.entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(h.entries))
	}
}
