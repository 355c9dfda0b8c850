package models

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a session's refinement conversation.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	// Replacement is set on assistant replies that look like a full report.
	Replacement bool `json:"replacement,omitempty"`
}

// Modification records a report replacement applied from the chat.
type Modification struct {
	AppliedAt time.Time `json:"applied_at"`
	Report    string    `json:"report"`
}
