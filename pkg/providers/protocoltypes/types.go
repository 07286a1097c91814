// Package protocoltypes defines the provider-neutral message shape shared
// by the session store, the dispatcher, and provider implementations.
package protocoltypes

import "github.com/tinyland-inc/tinyrelay/pkg/media"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn. Content carries plain text; Parts is
// set instead for multimodal turns (text fragment plus image payloads).
// Messages are immutable once appended to a history.
type Message struct {
	Role    string              `json:"role"`
	Content string              `json:"content,omitempty"`
	Parts   []media.ContentPart `json:"parts,omitempty"`
}

// HasParts reports whether this is a multimodal turn.
func (m Message) HasParts() bool {
	return len(m.Parts) > 0
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// UserMessageParts builds a multimodal user turn: one leading text part
// followed by the image parts in order.
func UserMessageParts(text string, images []media.ContentPart) Message {
	parts := make([]media.ContentPart, 0, 1+len(images))
	parts = append(parts, media.TextPart(text))
	parts = append(parts, images...)
	return Message{Role: RoleUser, Parts: parts}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}
