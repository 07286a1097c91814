package bus

import "github.com/tinyland-inc/tinyrelay/pkg/media"

// Markup selects the reply markup a channel should attach to an outbound
// message. Channels translate these into platform-specific keyboards.
type Markup string

const (
	MarkupNone         Markup = ""
	MarkupMainKeyboard Markup = "main_keyboard"
	MarkupForceReply   Markup = "force_reply"
)

// Main keyboard button labels. Channels render them on the reply
// keyboard; the dispatcher matches inbound text against them.
const (
	ButtonViewContext = "👁 View Context"
	ButtonChangeRole  = "🎭 Change Role"
)

// ParseMode selects outbound text formatting.
type ParseMode string

const (
	ParseModePlain      ParseMode = ""
	ParseModeMarkdownV2 ParseMode = "markdown_v2"
)

type InboundMessage struct {
	Channel    string              `json:"channel"`
	SenderID   string              `json:"sender_id"`
	ChatID     string              `json:"chat_id"`
	Content    string              `json:"content"` // text or caption
	Images     []media.ContentPart `json:"images,omitempty"`
	MessageID  string              `json:"message_id,omitempty"`  // platform message ID
	MediaScope string              `json:"media_scope,omitempty"` // media group aggregation scope
	Metadata   map[string]string   `json:"metadata,omitempty"`
}

type OutboundMessage struct {
	Channel   string    `json:"channel"`
	ChatID    string    `json:"chat_id"`
	Content   string    `json:"content"`
	ParseMode ParseMode `json:"parse_mode,omitempty"`
	Markup    Markup    `json:"markup,omitempty"`
}
