// Package core defines the shared data types of the assistant:
// role-tagged conversation messages and the typed metadata attached to
// every persisted turn.
package core

// Role identifies who produced a message.
type Role string

const (
	// RoleHuman marks a message typed by the user.
	RoleHuman Role = "human"

	// RoleAI marks a message generated by the assistant.
	RoleAI Role = "ai"
)

// Message is one role-tagged entry in a conversation history.
type Message struct {
	Role    Role
	Content string
}

// NewHumanMessage builds a human message.
func NewHumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// NewAIMessage builds an assistant message.
func NewAIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}
