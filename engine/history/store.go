// Package history is the story's event store: an append-only ordered list of
// story events mirrored between memory and a sqlite database. The in-memory
// list is authoritative for the running session; the database exists so a
// later session can pick the story back up. A failed database write degrades
// the session to memory-only for that event, it never drops it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/trsystems/TaleWeaver-sub000/engine/history/migrations"
	"github.com/trsystems/TaleWeaver-sub000/types"
	_ "modernc.org/sqlite"
)

var (
	// ErrPersistence wraps any database failure. The in-memory list already
	// holds the event when AddEvent returns this.
	ErrPersistence = errors.New("history: persistence failure")
	// ErrNoSuchEvent is returned for removal of an index outside the list.
	ErrNoSuchEvent = errors.New("history: no such event")
)

// Settings is the single persisted session-settings row: story identity, the
// latest scene snapshot, and the RNG state needed to resume the reaction
// schedule where the session left off.
type Settings struct {
	Theme             string
	Genre             string
	Location          string
	TimeOfDay         string
	Mood              string
	PresentCharacters []string
	RNGSeed           int64
	RNGPosition       int64
	CreatedAt         time.Time
	LastUpdated       time.Time
}

// Store keeps the ordered event list in memory and mirrors it to sqlite.
// Not safe for concurrent use; the session drives it from one goroutine.
type Store struct {
	sqlDB   *sql.DB
	events  []types.StoryEvent
	lastSeq int64

	// Logf reports persistence failures without aborting the session.
	// Defaults to a no-op.
	Logf func(format string, args ...any)
}

// Open opens (creating if needed) and migrates the sqlite store at path,
// then loads the persisted event list into memory.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history: storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("history: ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("history: run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, Logf: func(string, ...any) {}}
	if err := s.Load(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewMemory returns a store with no database behind it. Every event lives
// only as long as the session.
func NewMemory() *Store {
	return &Store{Logf: func(string, ...any) {}}
}

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load rebuilds the in-memory list from the database in insertion order.
func (s *Store) Load(ctx context.Context) error {
	if s.sqlDB == nil {
		return nil
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, event_type, content, character, timestamp, location, time_of_day, mood, elements
FROM story_events ORDER BY id`)
	if err != nil {
		return fmt.Errorf("history: load events: %w", err)
	}
	defer rows.Close()

	var events []types.StoryEvent
	var lastSeq int64
	for rows.Next() {
		var ev types.StoryEvent
		var evType string
		var ts int64
		var elements string
		if err := rows.Scan(&ev.Seq, &evType, &ev.Content, &ev.Character, &ts, &ev.Location, &ev.TimeOfDay, &ev.Mood, &elements); err != nil {
			return fmt.Errorf("history: scan event: %w", err)
		}
		ev.Type = types.EventType(evType)
		ev.Timestamp = time.UnixMilli(ts).UTC()
		if err := json.Unmarshal([]byte(elements), &ev.Elements); err != nil {
			ev.Elements = nil
		}
		events = append(events, ev)
		lastSeq = ev.Seq
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("history: load events: %w", err)
	}
	s.events = events
	s.lastSeq = lastSeq
	return nil
}

// AddEvent appends a new event carrying the given scene snapshot and the
// current time. Any text is accepted. A database failure still keeps the
// event in memory and returns a wrapped ErrPersistence.
func (s *Store) AddEvent(ctx context.Context, eventType types.EventType, content, character string, scene types.SceneState) (types.StoryEvent, error) {
	ev := types.StoryEvent{
		Type:      eventType,
		Content:   content,
		Character: character,
		Timestamp: time.Now().UTC(),
		Location:  scene.Location,
		TimeOfDay: scene.TimeOfDay,
		Mood:      scene.Mood,
		Elements:  append([]string(nil), scene.Elements...),
	}

	if s.sqlDB == nil {
		s.lastSeq++
		ev.Seq = s.lastSeq
		s.events = append(s.events, ev)
		return ev, nil
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO story_events (event_type, content, character, timestamp, location, time_of_day, mood, elements)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Type), ev.Content, ev.Character, ev.Timestamp.UnixMilli(),
		ev.Location, ev.TimeOfDay, ev.Mood, jsonList(ev.Elements))
	if err != nil {
		s.lastSeq++
		ev.Seq = s.lastSeq
		s.events = append(s.events, ev)
		s.Logf("history: add event: %v", err)
		return ev, fmt.Errorf("%w: add event: %v", ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		s.lastSeq++
		ev.Seq = s.lastSeq
		s.events = append(s.events, ev)
		s.Logf("history: add event id: %v", err)
		return ev, fmt.Errorf("%w: add event id: %v", ErrPersistence, err)
	}
	ev.Seq = id
	s.lastSeq = id
	s.events = append(s.events, ev)
	return ev, nil
}

// RemoveLast removes the most recent event.
func (s *Store) RemoveLast(ctx context.Context) (types.StoryEvent, error) {
	return s.Remove(ctx, len(s.events)-1)
}

// Remove deletes the event at the given zero-based list position from memory
// and from the database. Scene replay after a removal is the caller's job;
// LastNarration gives it the event to replay.
func (s *Store) Remove(ctx context.Context, index int) (types.StoryEvent, error) {
	if index < 0 || index >= len(s.events) {
		return types.StoryEvent{}, ErrNoSuchEvent
	}
	ev := s.events[index]
	s.events = append(s.events[:index], s.events[index+1:]...)

	if s.sqlDB == nil {
		return ev, nil
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM story_events WHERE id = ?`, ev.Seq); err != nil {
		s.Logf("history: remove event %d: %v", ev.Seq, err)
		return ev, fmt.Errorf("%w: remove event: %v", ErrPersistence, err)
	}
	return ev, nil
}

// Recent returns the last n events in insertion order. It never filters or
// reorders.
func (s *Store) Recent(n int) []types.StoryEvent {
	if n <= 0 {
		return nil
	}
	start := len(s.events) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.StoryEvent, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// Events returns a copy of the full ordered list.
func (s *Store) Events() []types.StoryEvent {
	out := make([]types.StoryEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Len reports how many events the session holds.
func (s *Store) Len() int { return len(s.events) }

// LastNarration returns the most recent narration event still in the list.
func (s *Store) LastNarration() (types.StoryEvent, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == types.EventNarration {
			return s.events[i], true
		}
	}
	return types.StoryEvent{}, false
}

// Summary formats a short digest of the story so far: totals per event type,
// the characters involved, and the most recent events.
func (s *Store) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eventos registrados: %d\n", len(s.events))

	counts := map[types.EventType]int{}
	var characters []string
	seen := map[string]bool{}
	for _, ev := range s.events {
		counts[ev.Type]++
		if ev.Character != "" && !seen[strings.ToLower(ev.Character)] {
			seen[strings.ToLower(ev.Character)] = true
			characters = append(characters, ev.Character)
		}
	}
	for _, t := range []types.EventType{types.EventNarration, types.EventDialogue, types.EventUserInput, types.EventContext} {
		if counts[t] > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", t, counts[t])
		}
	}
	if len(characters) > 0 {
		fmt.Fprintf(&b, "Personagens: %s\n", strings.Join(characters, ", "))
	}

	recent := s.Recent(5)
	if len(recent) > 0 {
		b.WriteString("Últimos acontecimentos:\n")
		for _, ev := range recent {
			who := "Narrador"
			if ev.Character != "" {
				who = ev.Character
			}
			fmt.Fprintf(&b, "  [%s] %s: %s\n", ev.Type, who, truncate(ev.Content, 120))
		}
	}
	return b.String()
}

// ResetStory deletes every event and the settings row, in memory and in the
// database.
func (s *Store) ResetStory(ctx context.Context) error {
	s.events = nil
	s.lastSeq = 0
	if s.sqlDB == nil {
		return nil
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM story_events`); err != nil {
		s.Logf("history: reset events: %v", err)
		return fmt.Errorf("%w: reset events: %v", ErrPersistence, err)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM story_settings`); err != nil {
		s.Logf("history: reset settings: %v", err)
		return fmt.Errorf("%w: reset settings: %v", ErrPersistence, err)
	}
	return nil
}

// SaveSettings upserts the single settings row with the latest scene
// snapshot.
func (s *Store) SaveSettings(ctx context.Context, st Settings) error {
	if s.sqlDB == nil {
		return nil
	}
	now := time.Now().UTC()
	created := st.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO story_settings (id, theme, genre, current_location, current_time, current_mood, present_characters, rng_seed, rng_position, created_at, last_updated)
VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    theme = excluded.theme,
    genre = excluded.genre,
    current_location = excluded.current_location,
    current_time = excluded.current_time,
    current_mood = excluded.current_mood,
    present_characters = excluded.present_characters,
    rng_seed = excluded.rng_seed,
    rng_position = excluded.rng_position,
    last_updated = excluded.last_updated`,
		st.Theme, st.Genre, st.Location, st.TimeOfDay, st.Mood,
		jsonList(st.PresentCharacters), st.RNGSeed, st.RNGPosition,
		created.UnixMilli(), now.UnixMilli())
	if err != nil {
		s.Logf("history: save settings: %v", err)
		return fmt.Errorf("%w: save settings: %v", ErrPersistence, err)
	}
	return nil
}

// LoadSettings reads the settings row. The second result is false when no
// story has been persisted yet.
func (s *Store) LoadSettings(ctx context.Context) (Settings, bool, error) {
	if s.sqlDB == nil {
		return Settings{}, false, nil
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT theme, genre, current_location, current_time, current_mood, present_characters, rng_seed, rng_position, created_at, last_updated
FROM story_settings WHERE id = 1`)

	var st Settings
	var present string
	var created, updated int64
	if err := row.Scan(&st.Theme, &st.Genre, &st.Location, &st.TimeOfDay, &st.Mood, &present, &st.RNGSeed, &st.RNGPosition, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("%w: load settings: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal([]byte(present), &st.PresentCharacters); err != nil {
		st.PresentCharacters = nil
	}
	st.CreatedAt = time.UnixMilli(created).UTC()
	st.LastUpdated = time.UnixMilli(updated).UTC()
	return st, true, nil
}

func jsonList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
