package loader

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// StoryDef is the story pack's identity and framing.
type StoryDef struct {
	Title    string
	Theme    string
	Genre    string
	Intro    string
	Language string
	Narrator string // id of the default narrator style
}

// CharacterDef is one playable character as declared by the pack.
type CharacterDef struct {
	Name        string
	Occupation  string
	Appearance  string
	Background  string
	Voice       string
	Personality []string
	Emotions    []string
	Goals       []string
}

// NarratorDef is one narrator style.
type NarratorDef struct {
	ID          string
	Description string
	Voice       string
	Prompt      string
}

// Defs is the compiled, immutable story pack.
type Defs struct {
	Story          StoryDef
	Characters     map[string]CharacterDef
	CharacterOrder []string // declaration order
	Narrators      map[string]NarratorDef
}

// rawCharacter holds a character table before compilation.
type rawCharacter struct {
	name  string
	table *lua.LTable
}

// rawNarrator holds a narrator style table before compilation.
type rawNarrator struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getStringList returns an array-style table field as a string slice.
func getStringList(tbl *lua.LTable, key string) []string {
	v := tbl.RawGetString(key)
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	for i := 1; i <= t.MaxN(); i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector) (*Defs, error) {
	defs := &Defs{
		Characters: map[string]CharacterDef{},
		Narrators:  map[string]NarratorDef{},
	}

	if coll.story == nil {
		return nil, fmt.Errorf("no Story definition found")
	}
	defs.Story = StoryDef{
		Title:    getString(coll.story, "title"),
		Theme:    getString(coll.story, "theme"),
		Genre:    getString(coll.story, "genre"),
		Intro:    getString(coll.story, "intro"),
		Language: getString(coll.story, "language"),
		Narrator: getString(coll.story, "narrator"),
	}

	for _, raw := range coll.characters {
		if _, exists := defs.Characters[raw.name]; exists {
			return nil, fmt.Errorf("duplicate character %q", raw.name)
		}
		defs.Characters[raw.name] = CharacterDef{
			Name:        raw.name,
			Occupation:  getString(raw.table, "occupation"),
			Appearance:  getString(raw.table, "appearance"),
			Background:  getString(raw.table, "background"),
			Voice:       getString(raw.table, "voice"),
			Personality: getStringList(raw.table, "personality"),
			Emotions:    getStringList(raw.table, "emotions"),
			Goals:       getStringList(raw.table, "goals"),
		}
		defs.CharacterOrder = append(defs.CharacterOrder, raw.name)
	}

	for _, raw := range coll.narrators {
		if _, exists := defs.Narrators[raw.id]; exists {
			return nil, fmt.Errorf("duplicate narrator style %q", raw.id)
		}
		defs.Narrators[raw.id] = NarratorDef{
			ID:          raw.id,
			Description: getString(raw.table, "description"),
			Voice:       getString(raw.table, "voice"),
			Prompt:      getString(raw.table, "prompt"),
		}
	}

	return defs, nil
}
