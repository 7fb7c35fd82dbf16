// Package profile persists one structured character profile per name as a
// JSON file, with a rotating .bak copy written before every save. Profiles
// in memory stay authoritative when a save fails, mirroring the event
// store's degraded mode.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/trsystems/TaleWeaver-sub000/types"
)

// ErrPersistence wraps any filesystem failure during a profile save. The
// in-memory profile already carries the change when this is returned.
var ErrPersistence = errors.New("profile: persistence failure")

// Seed is the loader-known character metadata a brand-new profile is
// synthesized from.
type Seed struct {
	Occupation  string
	Appearance  string
	Voice       string
	Background  string
	Personality []string
	Emotions    []string
	Goals       []string
}

// Store manages the profiles directory and an in-memory cache.
// Not safe for concurrent use.
type Store struct {
	dir   string
	seeds map[string]Seed
	cache map[string]*types.CharacterProfile

	// Logf reports persistence failures. Defaults to a no-op.
	Logf func(format string, args ...any)
}

// NewStore creates the profiles directory if needed. seeds maps character
// names (any case) to their story-pack metadata; names without a seed are
// unknown to GetOrCreate.
func NewStore(dir string, seeds map[string]Seed) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("profile: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("profile: create directory: %w", err)
	}
	s := &Store{
		dir:   dir,
		seeds: map[string]Seed{},
		cache: map[string]*types.CharacterProfile{},
		Logf:  func(string, ...any) {},
	}
	for name, seed := range seeds {
		s.seeds[strings.ToLower(name)] = seed
	}
	return s, nil
}

func (s *Store) path(name string) string {
	file := strings.ToLower(strings.TrimSpace(name))
	file = strings.ReplaceAll(file, " ", "_")
	return filepath.Join(s.dir, file+".json")
}

// GetOrCreate returns the profile for name, loading it from disk or
// synthesizing a minimal one from the story-pack seed. The second result is
// false for names with neither a stored profile nor a seed; callers treat
// that as "no profile yet" and proceed with defaults.
func (s *Store) GetOrCreate(name string) (types.CharacterProfile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return types.CharacterProfile{}, false
	}
	if p, ok := s.cache[key]; ok {
		return *p, true
	}

	if data, err := os.ReadFile(s.path(name)); err == nil {
		var p types.CharacterProfile
		if err := json.Unmarshal(data, &p); err == nil {
			s.cache[key] = &p
			return p, true
		}
		s.Logf("profile: corrupt file for %q, rebuilding", name)
	}

	seed, ok := s.seeds[key]
	if !ok {
		return types.CharacterProfile{}, false
	}
	p := types.CharacterProfile{
		Name: name,
		BasicInfo: types.BasicInfo{
			Occupation:  seed.Occupation,
			Appearance:  seed.Appearance,
			VoiceTraits: seed.Voice,
		},
		Personality: types.Personality{
			Traits: append([]string(nil), seed.Personality...),
		},
		Background: types.Background{
			History:       seed.Background,
			Relationships: map[string]string{},
		},
		DynamicState: types.DynamicState{
			CurrentEmotions: append([]string(nil), seed.Emotions...),
			CurrentGoals:    append([]string(nil), seed.Goals...),
		},
		LastUpdated: time.Now().UTC(),
	}
	s.cache[key] = &p
	if err := s.save(&p); err != nil {
		s.Logf("profile: save new profile %q: %v", name, err)
	}
	return p, true
}

// ApplyUpdates merges a partial update into the named profile: list fields
// are unioned without duplicates, scalar fields overwrite when non-empty,
// relationship entries are merged key-wise. LastUpdated is stamped. The
// merged profile is saved; a save failure returns ErrPersistence with the
// in-memory profile already updated.
func (s *Store) ApplyUpdates(name string, u types.ProfileUpdates) (types.CharacterProfile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	p, ok := s.cache[key]
	if !ok {
		got, found := s.GetOrCreate(name)
		if !found {
			got = types.CharacterProfile{Name: name,
				Background: types.Background{Relationships: map[string]string{}}}
		}
		p = &got
		s.cache[key] = p
	}

	if u.BasicInfo != nil {
		setScalar(&p.BasicInfo.Occupation, u.BasicInfo.Occupation)
		setScalar(&p.BasicInfo.Appearance, u.BasicInfo.Appearance)
		setScalar(&p.BasicInfo.VoiceTraits, u.BasicInfo.VoiceTraits)
		setScalar(&p.BasicInfo.Age, u.BasicInfo.Age)
		setScalar(&p.BasicInfo.Origin, u.BasicInfo.Origin)
	}
	if u.Personality != nil {
		p.Personality.Traits = union(p.Personality.Traits, u.Personality.Traits)
		p.Personality.Values = union(p.Personality.Values, u.Personality.Values)
		p.Personality.Fears = union(p.Personality.Fears, u.Personality.Fears)
		p.Personality.Desires = union(p.Personality.Desires, u.Personality.Desires)
	}
	if u.Background != nil {
		setScalar(&p.Background.History, u.Background.History)
		p.Background.KeyEvents = union(p.Background.KeyEvents, u.Background.KeyEvents)
		p.Background.Traumas = union(p.Background.Traumas, u.Background.Traumas)
		p.Background.Achievements = union(p.Background.Achievements, u.Background.Achievements)
		if len(u.Background.Relationships) > 0 {
			if p.Background.Relationships == nil {
				p.Background.Relationships = map[string]string{}
			}
			for k, v := range u.Background.Relationships {
				p.Background.Relationships[k] = v
			}
		}
	}
	if u.Abilities != nil {
		p.Abilities.Skills = union(p.Abilities.Skills, u.Abilities.Skills)
		p.Abilities.Knowledge = union(p.Abilities.Knowledge, u.Abilities.Knowledge)
		p.Abilities.Specialties = union(p.Abilities.Specialties, u.Abilities.Specialties)
	}
	if u.DynamicState != nil {
		p.DynamicState.CurrentEmotions = union(p.DynamicState.CurrentEmotions, u.DynamicState.CurrentEmotions)
		p.DynamicState.CurrentGoals = union(p.DynamicState.CurrentGoals, u.DynamicState.CurrentGoals)
		p.DynamicState.RecentExperiences = union(p.DynamicState.RecentExperiences, u.DynamicState.RecentExperiences)
		p.DynamicState.CharacterDevelopment = union(p.DynamicState.CharacterDevelopment, u.DynamicState.CharacterDevelopment)
	}
	p.LastUpdated = time.Now().UTC()

	if err := s.save(p); err != nil {
		s.Logf("profile: save %q: %v", name, err)
		return *p, fmt.Errorf("%w: save %s: %v", ErrPersistence, name, err)
	}
	return *p, nil
}

// save writes the profile JSON, first rotating any existing file to .bak.
func (s *Store) save(p *types.CharacterProfile) error {
	path := s.path(p.Name)
	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", prev, 0o644); err != nil {
			return fmt.Errorf("rotate backup: %w", err)
		}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// RenderForPrompt formats the profile as the text block prompts embed. With
// includeDynamic false the volatile state is left out, for prompts that only
// need the stable identity.
func (s *Store) RenderForPrompt(name string, includeDynamic bool) string {
	p, ok := s.GetOrCreate(name)
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Nome: %s\n", p.Name)
	writeField(&b, "Ocupação", p.BasicInfo.Occupation)
	writeField(&b, "Aparência", p.BasicInfo.Appearance)
	writeField(&b, "Origem", p.BasicInfo.Origin)
	writeList(&b, "Personalidade", p.Personality.Traits)
	writeList(&b, "Valores", p.Personality.Values)
	writeList(&b, "Medos", p.Personality.Fears)
	writeList(&b, "Desejos", p.Personality.Desires)
	writeField(&b, "História", p.Background.History)
	writeList(&b, "Eventos marcantes", p.Background.KeyEvents)
	writeList(&b, "Habilidades", p.Abilities.Skills)
	if includeDynamic {
		writeList(&b, "Emoções atuais", p.DynamicState.CurrentEmotions)
		writeList(&b, "Objetivos atuais", p.DynamicState.CurrentGoals)
		writeList(&b, "Experiências recentes", p.DynamicState.RecentExperiences)
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(b, "%s: %s\n", label, strings.Join(values, ", "))
	}
}

func setScalar(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func union(base, extra []string) []string {
	out := base
	for _, v := range extra {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, have := range out {
			if strings.EqualFold(have, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// JSONGenerator produces structured JSON from a prompt; the llm client
// implements it with the repair-and-retry path.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) ([]byte, error)
}

// AnalyzeEvents asks the generator for profile updates derived from the
// recent events that mention the character, then merges them in. Events not
// mentioning the character are skipped; with none, this is a no-op.
func (s *Store) AnalyzeEvents(ctx context.Context, name string, events []types.StoryEvent, gen JSONGenerator) (types.CharacterProfile, error) {
	lower := strings.ToLower(name)
	var mentions []string
	for _, ev := range events {
		if strings.EqualFold(ev.Character, name) || strings.Contains(strings.ToLower(ev.Content), lower) {
			mentions = append(mentions, ev.Content)
		}
	}
	if len(mentions) == 0 {
		p, _ := s.GetOrCreate(name)
		return p, nil
	}

	prompt := analyzePrompt(name, mentions)
	data, err := gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return types.CharacterProfile{}, fmt.Errorf("profile: analyze events for %s: %w", name, err)
	}
	var updates types.ProfileUpdates
	if err := json.Unmarshal(data, &updates); err != nil {
		return types.CharacterProfile{}, fmt.Errorf("profile: decode updates for %s: %w", name, err)
	}
	return s.ApplyUpdates(name, updates)
}

func analyzePrompt(name string, mentions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analise os acontecimentos abaixo envolvendo %s e produza atualizações para o perfil do personagem.\n\n", name)
	b.WriteString("Acontecimentos:\n")
	for _, m := range mentions {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	b.WriteString(`
Responda APENAS com um objeto JSON neste formato, omitindo seções sem novidades:
{
  "personality": {"traits": [], "values": [], "fears": [], "desires": []},
  "background": {"key_events": [], "relationships": {}},
  "dynamic_state": {"current_emotions": [], "current_goals": [], "recent_experiences": []}
}
`)
	return b.String()
}
