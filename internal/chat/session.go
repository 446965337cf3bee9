// Package chat keeps the conversation history for follow-up questions about
// a plan and merges model replies into it.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"evai/internal/grounding"
	"evai/internal/logging"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Message is one turn. Messages are appended to a history and never edited.
type Message struct {
	Role      Role                 `json:"role"`
	Parts     []Part               `json:"parts"`
	Citations []grounding.Citation `json:"citations,omitempty"`
}

// Text joins the message parts.
func (m Message) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}
	texts := make([]string, len(m.Parts))
	for i, p := range m.Parts {
		texts[i] = p.Text
	}
	return strings.Join(texts, "")
}

// Reply is what a Sender returns for one message.
type Reply struct {
	Text            string
	GroundingChunks json.RawMessage
}

// Sender delivers a message to the model. history is the conversation as it
// stood before text was added.
type Sender interface {
	SendMessage(ctx context.Context, history []Message, text string) (Reply, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, history []Message, text string) (Reply, error)

func (f SenderFunc) SendMessage(ctx context.Context, history []Message, text string) (Reply, error) {
	return f(ctx, history, text)
}

var (
	// ErrEmptyMessage is returned for blank input; nothing is appended.
	ErrEmptyMessage = errors.New("chat: empty message")

	// ErrReset is returned when the session was reset while a reply was in
	// flight. The reply is discarded.
	ErrReset = errors.New("chat: session was reset before the reply arrived")
)

// Session is one conversation. It is safe for concurrent use; concurrent
// sends each append their own user turn immediately and their model turn
// when the reply arrives, so replies may land in completion order.
type Session struct {
	ID string

	sender Sender

	mu      sync.Mutex
	history []Message
	epoch   uint64
}

// NewSession starts an empty conversation.
func NewSession(sender Sender) *Session {
	return &Session{ID: uuid.NewString(), sender: sender}
}

// Send appends the user turn, asks the Sender for a reply, and appends the
// model turn with its normalized citations. If the Sender fails the user turn
// stays in the history, matching what the model was shown.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	prior := make([]Message, len(s.history))
	copy(prior, s.history)
	s.history = append(s.history, Message{Role: RoleUser, Parts: []Part{{Text: text}}})
	epoch := s.epoch
	s.mu.Unlock()

	logging.ChatDebug("session %s: sending turn %d", s.ID, len(prior)+1)

	reply, err := s.sender.SendMessage(ctx, prior, text)
	if err != nil {
		logging.ChatError("session %s: send failed: %v", s.ID, err)
		return Message{}, fmt.Errorf("chat send: %w", err)
	}

	msg := Message{
		Role:      RoleModel,
		Parts:     []Part{{Text: reply.Text}},
		Citations: grounding.Normalize(reply.GroundingChunks),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		logging.Chat("session %s: dropping reply that arrived after reset", s.ID)
		return Message{}, ErrReset
	}
	s.history = append(s.history, msg)
	logging.ChatDebug("session %s: reply with %d citations, history now %d turns", s.ID, len(msg.Citations), len(s.history))
	return msg, nil
}

// History returns a copy of the turns so far.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Reset clears the history. Replies still in flight are discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.epoch++
	logging.Chat("session %s: history reset", s.ID)
}
