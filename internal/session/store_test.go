package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aulago/tutoria/internal/log"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(TimestampLayout, value, time.Local)
	if err != nil {
		t.Fatalf("parsing %q: %v", value, err)
	}
	return ts
}

func TestKey(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 1, 1, 15, 30, 0, 0, time.Local)
	got := Key("Tutor", day)
	if got != "agent_Tutor_20240101" {
		t.Errorf("Key() = %q, want %q", got, "agent_Tutor_20240101")
	}
}

func TestKey_DailyRollover(t *testing.T) {
	t.Parallel()

	// Same agent, consecutive days: distinct buckets.
	d1 := time.Date(2024, 1, 1, 23, 59, 0, 0, time.Local)
	d2 := time.Date(2024, 1, 2, 0, 1, 0, 0, time.Local)
	if Key("Tutor", d1) == Key("Tutor", d2) {
		t.Error("Key() must change across calendar days")
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	turns, err := s.Load("agent_Nobody_20240101")
	if err != nil {
		t.Fatalf("Load() missing file error = %v, want nil", err)
	}
	if len(turns) != 0 {
		t.Errorf("Load() missing file = %d turns, want 0", len(turns))
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	key := "agent_Tutor_20240101"
	turns := []Turn{
		{Role: "user", Content: "hi", Timestamp: mustParse(t, "2024-01-01T10:00:00")},
		{Role: "assistant", Content: "hello", Timestamp: mustParse(t, "2024-01-01T10:00:03")},
	}

	if err := s.Save(key, turns); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() = %d turns, want 2", len(got))
	}
	for i := range turns {
		if got[i].Role != turns[i].Role {
			t.Errorf("turn %d role = %q, want %q", i, got[i].Role, turns[i].Role)
		}
		if got[i].Content != turns[i].Content {
			t.Errorf("turn %d content = %q, want %q", i, got[i].Content, turns[i].Content)
		}
		if !got[i].Timestamp.Equal(turns[i].Timestamp) {
			t.Errorf("turn %d timestamp = %v, want %v", i, got[i].Timestamp, turns[i].Timestamp)
		}
	}
}

func TestStore_UnicodeRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	key := "agent_Profe_20240315"
	content := "¿Qué es la fotosíntesis? 光合作用 🌱 <b>&amp;</b>"
	turns := []Turn{
		{Role: "user", Content: content, Timestamp: mustParse(t, "2024-03-15T09:00:00")},
	}

	if err := s.Save(key, turns); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got[0].Content != content {
		t.Errorf("Load() content = %q, want %q (lossless Unicode)", got[0].Content, content)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	key := "agent_Tutor_20240101"

	first := []Turn{{Role: "user", Content: "old", Timestamp: mustParse(t, "2024-01-01T08:00:00")}}
	second := []Turn{
		{Role: "user", Content: "new", Timestamp: mustParse(t, "2024-01-01T09:00:00")},
		{Role: "assistant", Content: "reply", Timestamp: mustParse(t, "2024-01-01T09:00:01")},
	}

	if err := s.Save(key, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(key, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load(key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 || got[0].Content != "new" {
		t.Errorf("Load() after overwrite = %+v, want the second save", got)
	}
}

func TestStore_WireFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := "agent_Tutor_20240101"
	turns := []Turn{{Role: "user", Content: "hi", Timestamp: mustParse(t, "2024-01-01T10:00:00")}}
	if err := s.Save(key, turns); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, key+".json"))
	if err != nil {
		t.Fatalf("reading session file: %v", err)
	}
	body := string(data)

	// The format IS the array shape: role/content/timestamp objects.
	for _, want := range []string{`"role": "user"`, `"content": "hi"`, `"timestamp": "2024-01-01T10:00:00"`} {
		if !strings.Contains(body, want) {
			t.Errorf("session file missing %s:\n%s", want, body)
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(body), "[") {
		t.Errorf("session file is not a JSON array:\n%s", body)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := "agent_Broken_20240101"
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	_, err = s.Load(key)
	if !errors.Is(err, ErrCorruptSession) {
		t.Errorf("Load() corrupt file error = %v, want ErrCorruptSession", err)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		if _, err := s.Load(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Load(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if err := s.Save(key, nil); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ts := mustParse(t, "2024-01-01T10:00:00")
	for _, key := range []string{"agent_Tutor_20240102", "agent_Tutor_20240101", "agent_Other_20240101"} {
		if err := s.Save(key, []Turn{{Role: "user", Content: "x", Timestamp: ts}}); err != nil {
			t.Fatalf("Save(%q) error = %v", key, err)
		}
	}

	keys, err := s.List("agent_Tutor_")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"agent_Tutor_20240101", "agent_Tutor_20240102"}
	if len(keys) != len(want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List(\"\") error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(\"\") = %d keys, want 3", len(all))
	}
}
