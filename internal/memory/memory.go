// Package memory provides the in-process conversation log for an active
// tutoring session.
//
// Responsibilities: append-only turn recording, a bounded recent-window view
// for prompt construction, and capping of the live log after persistence.
// Thread Safety: Log is safe for concurrent use, though the engine processes
// one query at a time.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Role constants define valid turn roles.
// Role alternation is not enforced; two consecutive user turns are legal.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultRecentTurns is the number of turns injected into the prompt
// when no explicit window is requested.
const DefaultRecentTurns = 5

// ActiveLimit caps the live in-memory log. Older turns are dropped after
// each persist; the persisted file is never truncated.
const ActiveLimit = 15

// Turn is a single message in a conversation. Immutable once created.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Log encapsulates the active session's ordered turn sequence.
//
// Note: The zero value is NOT useful - use NewLog() to create instances.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{
		turns: make([]Turn, 0),
	}
}

// Append records a turn with the current time. Timestamps are truncated to
// whole seconds to match the persisted encoding, and forced monotonically
// non-decreasing across appends.
func (l *Log) Append(role, content string) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Truncate(time.Second)
	if n := len(l.turns); n > 0 && ts.Before(l.turns[n-1].Timestamp) {
		ts = l.turns[n-1].Timestamp
	}

	turn := Turn{Role: role, Content: content, Timestamp: ts}
	l.turns = append(l.turns, turn)
	return turn
}

// Turns returns a copy of the entire active log for display.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Turn, len(l.turns))
	copy(result, l.turns)
	return result
}

// SetTurns replaces the active log, used when restoring a persisted session.
// Makes a defensive copy to prevent external modification.
func (l *Log) SetTurns(turns []Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = make([]Turn, len(turns))
	copy(l.turns, turns)
}

// Len returns the number of turns in the active log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear removes all turns.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = make([]Turn, 0)
}

// CapTo drops all but the most recent n turns from the active log.
// Storage is unaffected; callers persist before capping.
func (l *Log) CapTo(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 || len(l.turns) <= n {
		return
	}
	kept := make([]Turn, n)
	copy(kept, l.turns[len(l.turns)-n:])
	l.turns = kept
}

// Recent formats the last k turns, oldest first, as alternating
// "Human:"/"Assistant:" lines for prompt injection. k <= 0 uses
// DefaultRecentTurns. Returns "" for an empty log.
func (l *Log) Recent(k int) string {
	if k <= 0 {
		k = DefaultRecentTurns
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if len(l.turns) > k {
		start = len(l.turns) - k
	}

	var sb strings.Builder
	for i, turn := range l.turns[start:] {
		if i > 0 {
			sb.WriteByte('\n')
		}
		label := "Assistant"
		if turn.Role == RoleUser {
			label = "Human"
		}
		fmt.Fprintf(&sb, "%s: %s", label, turn.Content)
	}
	return sb.String()
}
