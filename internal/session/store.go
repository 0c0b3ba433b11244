// Package session provides durable persistence for conversation history.
//
// Responsibilities: save/load the ordered turn log of a session as one JSON
// file per session key under the storage directory, and enumerate stored
// keys for historical selection.
//
// The on-disk format is a JSON array of {role, content, timestamp} objects
// in chronological order; timestamps are ISO-8601 local-naive strings.
// Single-writer: the active process overwrites the whole file on each save,
// last write wins. Multi-process coordination is out of scope.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the persisted timestamp encoding: ISO-8601 without
// zone offset, interpreted in local time.
const TimestampLayout = "2006-01-02T15:04:05"

// KeyPrefix starts every session key. Full shape: agent_<name>_<YYYYMMDD>.
const KeyPrefix = "agent_"

// Sentinel errors for store operations.
var (
	// ErrInvalidKey indicates a malformed or path-escaping session key.
	ErrInvalidKey = errors.New("invalid session key")

	// ErrCorruptSession indicates a session file that exists but cannot
	// be decoded. Fatal for that load only; the process stays up.
	ErrCorruptSession = errors.New("corrupt session file")
)

// Turn mirrors memory.Turn for storage without importing it, keeping the
// store usable by any caller that speaks (role, content, timestamp).
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// wireTurn is the persisted object shape.
type wireTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Store persists session turn logs as files under a single directory.
//
// Note: The zero value is NOT useful - use New() to create instances.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Key derives the session key for an agent name on a given day.
// Two agents with the same name on the same day share a key by design:
// the key acts as a daily session bucket.
func Key(agentName string, t time.Time) string {
	return KeyPrefix + agentName + "_" + t.Format("20060102")
}

// validateKey rejects keys that would escape the storage directory.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// path returns the file path for a session key.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load returns the ordered turn sequence for key. A missing file is empty
// history, not an error. An unreadable or undecodable file returns
// ErrCorruptSession wrapped with detail.
func (s *Store) Load(key string) ([]Turn, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("reading session %q: %w", key, err)
	}

	var wire []wireTurn
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %v", ErrCorruptSession, key, err)
	}

	turns := make([]Turn, len(wire))
	for i, wt := range wire {
		ts, err := time.ParseInLocation(TimestampLayout, wt.Timestamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp %q in %q: %v", ErrCorruptSession, wt.Timestamp, key, err)
		}
		turns[i] = Turn{Role: wt.Role, Content: wt.Content, Timestamp: ts}
	}

	s.logger.Debug("session loaded", "key", key, "turns", len(turns))
	return turns, nil
}

// Save overwrites the session file for key with the full turn sequence.
// The write goes through a temp file + rename so a crash mid-write never
// leaves a half-encoded array behind.
func (s *Store) Save(key string, turns []Turn) error {
	if err := validateKey(key); err != nil {
		return err
	}

	wire := make([]wireTurn, len(turns))
	for i, t := range turns {
		wire[i] = wireTurn{
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: t.Timestamp.Format(TimestampLayout),
		}
	}

	// SetEscapeHTML(false) keeps multi-byte and markup content readable
	// and round-trips all Unicode losslessly.
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wire); err != nil {
		return fmt.Errorf("encoding session %q: %w", key, err)
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o600); err != nil {
		return fmt.Errorf("writing session %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("replacing session %q: %w", key, err)
	}

	s.logger.Debug("session saved", "key", key, "turns", len(turns))
	return nil
}

// List enumerates stored session keys that begin with prefix, sorted
// ascending. An empty prefix lists every session.
func (s *Store) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
