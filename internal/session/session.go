package session

import (
	"time"

	"github.com/google/uuid"
)

// Roles understood by the chat-completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryLimit is the number of turns kept as conversation context.
const DefaultHistoryLimit = 10

// Message represents a single chat message
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a chat session
type Session struct {
	ID         string    `json:"id"`
	StartTime  time.Time `json:"start_time"`
	Transcript []Message `json:"transcript"`
	History    *Window   `json:"-"`
}

// New creates a session with a fresh UUIDv7 identifier and an empty
// history window holding at most limit turns.
func New(limit int) *Session {
	return &Session{
		ID:         uuid.Must(uuid.NewV7()).String(),
		StartTime:  time.Now(),
		Transcript: []Message{},
		History:    NewWindow(limit),
	}
}

// Append adds msg to the visible transcript.
func (s *Session) Append(msg Message) {
	s.Transcript = append(s.Transcript, msg)
}

// Messages returns a copy of the visible transcript.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}
