package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

func testScene() types.SceneState {
	s := types.NewSceneState()
	s.Location = "floresta"
	s.TimeOfDay = "noite"
	s.Mood = "tenso"
	s.Elements = []string{"porta"}
	return s
}

func TestAddEvent_OrderingAndRecent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	contents := []string{"um", "dois", "três", "quatro", "cinco"}
	for _, c := range contents {
		if _, err := s.AddEvent(ctx, types.EventNarration, c, "", testScene()); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}

	got := s.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) = %d events, want 3", len(got))
	}
	for i, want := range []string{"três", "quatro", "cinco"} {
		if got[i].Content != want {
			t.Errorf("Recent(3)[%d] = %q, want %q", i, got[i].Content, want)
		}
	}
	if s.Recent(100)[0].Content != "um" {
		t.Error("Recent larger than the list must return everything in order")
	}
}

func TestAddEvent_SnapshotsScene(t *testing.T) {
	s := NewMemory()
	ev, err := s.AddEvent(context.Background(), types.EventDialogue, "Olá", "Maria", testScene())
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if ev.Location != "floresta" || ev.TimeOfDay != "noite" || ev.Mood != "tenso" {
		t.Errorf("scene snapshot not carried: %+v", ev)
	}
	if len(ev.Elements) != 1 || ev.Elements[0] != "porta" {
		t.Errorf("elements snapshot = %v", ev.Elements)
	}
	if ev.Seq != 1 {
		t.Errorf("Seq = %d, want 1", ev.Seq)
	}
}

func TestRoundTrip_ReloadReproducesList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "story.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.AddEvent(ctx, types.EventUserInput, "Entro na floresta", "", types.NewSceneState()); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if _, err := s.AddEvent(ctx, types.EventNarration, "A noite caía", "", testScene()); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if _, err := s.AddEvent(ctx, types.EventDialogue, "Quem está aí?", "Maria", testScene()); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if err := s.SaveSettings(ctx, Settings{
		Theme:             "mistério",
		Genre:             "suspense",
		Location:          "floresta",
		TimeOfDay:         "noite",
		Mood:              "tenso",
		PresentCharacters: []string{"Maria"},
		RNGSeed:           42,
		RNGPosition:       17,
	}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	want := s.Events()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got := s2.Events()
	if len(got) != len(want) {
		t.Fatalf("reloaded %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Seq != want[i].Seq || got[i].Type != want[i].Type ||
			got[i].Content != want[i].Content || got[i].Character != want[i].Character ||
			got[i].Location != want[i].Location || got[i].TimeOfDay != want[i].TimeOfDay ||
			got[i].Mood != want[i].Mood {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
		if got[i].Timestamp.UnixMilli() != want[i].Timestamp.UnixMilli() {
			t.Errorf("event %d timestamp drifted on reload", i)
		}
	}

	st, ok, err := s2.LoadSettings(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadSettings = %v, ok=%v", err, ok)
	}
	if st.Theme != "mistério" || st.Location != "floresta" || len(st.PresentCharacters) != 1 {
		t.Errorf("settings round trip = %+v", st)
	}
	if st.RNGSeed != 42 || st.RNGPosition != 17 {
		t.Errorf("RNG state round trip = seed %d pos %d, want 42/17", st.RNGSeed, st.RNGPosition)
	}
}

func TestRemove_DeletesFromMemoryAndDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "story.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, c := range []string{"um", "dois", "três"} {
		if _, err := s.AddEvent(ctx, types.EventNarration, c, "", types.NewSceneState()); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}
	removed, err := s.Remove(ctx, 1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.Content != "dois" {
		t.Fatalf("removed %q, want %q", removed.Content, "dois")
	}
	s.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got := s2.Events()
	if len(got) != 2 || got[0].Content != "um" || got[1].Content != "três" {
		t.Fatalf("after removal: %+v", got)
	}
}

func TestRemove_OutOfRange(t *testing.T) {
	s := NewMemory()
	if _, err := s.Remove(context.Background(), 0); !errors.Is(err, ErrNoSuchEvent) {
		t.Fatalf("err = %v, want ErrNoSuchEvent", err)
	}
	if _, err := s.RemoveLast(context.Background()); !errors.Is(err, ErrNoSuchEvent) {
		t.Fatalf("RemoveLast on empty = %v, want ErrNoSuchEvent", err)
	}
}

func TestLastNarration_SkipsOtherTypes(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.AddEvent(ctx, types.EventNarration, "primeira narração", "", types.NewSceneState())
	s.AddEvent(ctx, types.EventNarration, "segunda narração", "", types.NewSceneState())
	s.AddEvent(ctx, types.EventDialogue, "fala", "Maria", types.NewSceneState())

	ev, ok := s.LastNarration()
	if !ok || ev.Content != "segunda narração" {
		t.Fatalf("LastNarration = %+v ok=%v", ev, ok)
	}

	if _, err := s.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ev, ok = s.LastNarration()
	if !ok || ev.Content != "primeira narração" {
		t.Fatalf("after removal LastNarration = %+v ok=%v", ev, ok)
	}
}

func TestLastNarration_EmptyStory(t *testing.T) {
	s := NewMemory()
	if _, ok := s.LastNarration(); ok {
		t.Fatal("empty story must report no narration")
	}
}

func TestResetStory_TruncatesEverything(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "story.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.AddEvent(ctx, types.EventNarration, "algo", "", types.NewSceneState())
	s.SaveSettings(ctx, Settings{Theme: "mistério"})
	if err := s.ResetStory(ctx); err != nil {
		t.Fatalf("ResetStory: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after reset", s.Len())
	}
	s.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if s2.Len() != 0 {
		t.Fatalf("reloaded %d events after reset", s2.Len())
	}
	if _, ok, _ := s2.LoadSettings(ctx); ok {
		t.Fatal("settings row must be gone after reset")
	}
}

func TestSummary_CountsAndCharacters(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.AddEvent(ctx, types.EventNarration, "A noite caía", "", types.NewSceneState())
	s.AddEvent(ctx, types.EventDialogue, "Olá", "Maria", types.NewSceneState())
	s.AddEvent(ctx, types.EventDialogue, "Oi", "maria", types.NewSceneState())

	sum := s.Summary()
	if !strings.Contains(sum, "Eventos registrados: 3") {
		t.Errorf("summary missing total:\n%s", sum)
	}
	if !strings.Contains(sum, "narration: 1") || !strings.Contains(sum, "dialogue: 2") {
		t.Errorf("summary missing per-type counts:\n%s", sum)
	}
	if strings.Count(sum, "Maria") < 1 || strings.Contains(sum, "maria,") {
		t.Errorf("character list should dedupe case-insensitively:\n%s", sum)
	}
}
