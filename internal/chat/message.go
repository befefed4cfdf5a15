// Package chat implements the assistant response pipeline: it submits the
// conversation to the AI gateway, folds the streamed deltas back into a
// growing assistant message, links video names mentioned in the text to
// catalog entries, and publishes render-ready snapshots after every update.
package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message typed by the visitor.
	RoleUser Role = "user"

	// RoleAssistant marks a message produced by the coach.
	RoleAssistant Role = "assistant"
)

// Message is one chat turn's text plus the catalog entries it references.
// An assistant message's Content grows while its turn streams and is final
// once the turn settles.
type Message struct {
	// ID is a unique identifier for UI keying.
	ID string `json:"id"`

	// Role is the message author.
	Role Role `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Videos are the catalog entries linked from Content, in detection
	// order. Recomputed after every delta; empty for user messages.
	Videos []catalog.Video `json:"videos,omitempty"`

	// CreatedAt records when the message was started.
	CreatedAt time.Time `json:"created_at"`
}

// newMessage constructs a message with a fresh ID.
func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
