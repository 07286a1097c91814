// Package session owns all per-chat state: the interaction mode and the
// bounded conversation history. Nothing else mutates either directly.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tinyland-inc/tinyrelay/pkg/providers/protocoltypes"
)

// Mode is the per-chat interaction mode.
type Mode string

const (
	// ModeNormal routes inbound events to the dispatcher.
	ModeNormal Mode = "normal"
	// ModeAwaitingRole makes the next text event the new system prompt.
	ModeAwaitingRole Mode = "awaiting_role"
)

const previewRunes = 100

type session struct {
	mode    Mode
	history []protocoltypes.Message
}

// Store is the per-chat session map. One mutex guards the whole map;
// chats never share mutable state beyond membership in it.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session

	defaultPrompt string
	maxHistory    int
}

func NewStore(defaultPrompt string, maxHistory int) *Store {
	return &Store{
		sessions:      make(map[string]*session),
		defaultPrompt: defaultPrompt,
		maxHistory:    maxHistory,
	}
}

// Exists reports whether the chat has a session.
func (s *Store) Exists(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[chatID]
	return ok
}

// Ensure creates the chat's session with the default persona if absent.
func (s *Store) Ensure(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(chatID)
}

func (s *Store) ensureLocked(chatID string) *session {
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &session{
			mode:    ModeNormal,
			history: []protocoltypes.Message{protocoltypes.SystemMessage(s.defaultPrompt)},
		}
		s.sessions[chatID] = sess
	}
	return sess
}

// Mode returns the chat's interaction mode. Chats without a session are Normal.
func (s *Store) Mode(chatID string) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		return sess.mode
	}
	return ModeNormal
}

func (s *Store) SetMode(chatID string, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(chatID).mode = mode
}

// Reset replaces the system turn with prompt and clears every turn after
// it. Used both at first contact and when the persona changes.
func (s *Store) Reset(chatID, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.ensureLocked(chatID)
	sess.history = []protocoltypes.Message{protocoltypes.SystemMessage(prompt)}
}

// Append adds a turn at the tail of the chat's history.
func (s *Store) Append(chatID string, msg protocoltypes.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.ensureLocked(chatID)
	sess.history = append(sess.history, msg)
}

// Truncate drops the oldest user+assistant pair (indices 1 and 2) while
// the history exceeds the bound. The system turn at index 0 is never
// evicted and pairs are never split.
func (s *Store) Truncate(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return
	}
	for len(sess.history) > s.maxHistory && len(sess.history) > 3 {
		sess.history = append(sess.history[:1], sess.history[3:]...)
	}
}

// History returns a snapshot of the chat's turns in order.
func (s *Store) History(chatID string) []protocoltypes.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return nil
	}
	out := make([]protocoltypes.Message, len(sess.history))
	copy(out, sess.history)
	return out
}

// Describe returns the display-safe projection of the chat's history:
// one numbered line per turn with a fixed-length text preview. Turns
// carrying image payloads render as a placeholder, never raw data.
func (s *Store) Describe(chatID string) string {
	history := s.History(chatID)
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	for i, msg := range history {
		var preview string
		if msg.HasParts() {
			preview = "Message with image"
		} else {
			preview = truncateRunes(msg.Content, previewRunes) + "..."
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i, msg.Role, preview))
	}
	return strings.Join(lines, "\n\n")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
