// Package message defines the immutable message model exchanged between actors.
package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Broadcast is the receiver marker that addresses every actor in the roster.
const Broadcast = "all"

// SystemSender is the sender id used for synthetic messages produced by the
// coordination layer itself (silence placeholders, phase notices).
const SystemSender = "system"

// ToolResponse is an optional sub-payload carried by messages that report the
// result of a tool invocation. It is routed to the originating actor's tool
// memory by the updater.
type ToolResponse struct {
	Tool   string `json:"tool"`
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output"`
}

// Message is a single unit of actor output. Once constructed it is never
// mutated; ownership passes from the producing actor to the environment,
// which hands copies to each recipient's memory.
type Message struct {
	ID           string         `json:"id"`
	Sender       string         `json:"sender"`
	Receivers    []string       `json:"receivers"`
	Content      string         `json:"content"`
	CreatedAt    time.Time      `json:"created_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ToolResponse *ToolResponse  `json:"tool_response,omitempty"`
}

// New creates a message from sender to the given receivers. With no
// receivers the message is addressed to the broadcast marker.
func New(sender, content string, receivers ...string) *Message {
	if len(receivers) == 0 {
		receivers = []string{Broadcast}
	}
	return &Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receivers: receivers,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewSystem creates a broadcast message from the system sender.
func NewSystem(content string) *Message {
	return New(SystemSender, content)
}

// IsBroadcast reports whether the receiver set contains the broadcast marker.
func (m *Message) IsBroadcast() bool {
	for _, r := range m.Receivers {
		if r == Broadcast {
			return true
		}
	}
	return false
}

// IsSystem reports whether the message was produced by the system sender.
func (m *Message) IsSystem() bool {
	return m.Sender == SystemSender
}

// NormalizedContent returns the content lowered and whitespace-collapsed.
// Used for duplicate detection.
func (m *Message) NormalizedContent() string {
	return strings.ToLower(strings.Join(strings.Fields(m.Content), " "))
}

// Clone returns a deep copy. Recipients receive clones so that a shared
// history entry can never be mutated through a memory.
func (m *Message) Clone() *Message {
	c := *m
	c.Receivers = append([]string(nil), m.Receivers...)
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	if m.ToolResponse != nil {
		tr := *m.ToolResponse
		c.ToolResponse = &tr
	}
	return &c
}
