// Package memory keeps ordered per-conversation message history for the
// process lifetime. It is the sole source of truth for conversation state
// and is purely additive: messages are never edited or removed.
package memory

import "sync"

// Roles recorded in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one immutable turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store maps conversation IDs to ordered message lists.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{conversations: make(map[string][]Message)}
}

// Append adds a message to the conversation, creating it on first use.
func (s *Store) Append(conversationID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = append(s.conversations[conversationID], Message{
		Role:    role,
		Content: content,
	})
}

// History returns a copy of the conversation's messages in append order.
// An unknown ID yields an empty slice, never an error, and leaves no trace.
func (s *Store) History(conversationID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.conversations[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of messages in a conversation.
func (s *Store) Len(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations[conversationID])
}
