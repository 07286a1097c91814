// Package agent implements the turn dispatcher: it consumes inbound
// platform events, resolves per-chat mode, folds media groups into one
// logical submission, relays the conversation to the completion backend,
// and maintains the bounded history.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tinyland-inc/tinyrelay/pkg/bus"
	"github.com/tinyland-inc/tinyrelay/pkg/chatlog"
	"github.com/tinyland-inc/tinyrelay/pkg/logger"
	"github.com/tinyland-inc/tinyrelay/pkg/markdown"
	"github.com/tinyland-inc/tinyrelay/pkg/media"
	"github.com/tinyland-inc/tinyrelay/pkg/providers/openaicompat"
	"github.com/tinyland-inc/tinyrelay/pkg/providers/protocoltypes"
	"github.com/tinyland-inc/tinyrelay/pkg/session"
)

// CompletionProvider is the completion backend collaborator.
type CompletionProvider interface {
	Chat(ctx context.Context, messages []protocoltypes.Message) (string, error)
	Model() string
}

const (
	welcomeText     = "Welcome! I am a chat bot. Use the buttons or just send a message!"
	rolePromptText  = "Please describe the new role:"
	roleChangedText = "Role successfully changed! You can start chatting."
	emptyContext    = "Context is empty"
	requestingText  = "Requesting a response..."
	describeImages  = "Please describe these images"
)

type Loop struct {
	bus        *bus.MessageBus
	sessions   *session.Store
	aggregator *media.Aggregator
	provider   CompletionProvider
	transcript *chatlog.Logger

	wg sync.WaitGroup
}

func NewLoop(
	msgBus *bus.MessageBus,
	sessions *session.Store,
	aggregator *media.Aggregator,
	provider CompletionProvider,
	transcript *chatlog.Logger,
) *Loop {
	return &Loop{
		bus:        msgBus,
		sessions:   sessions,
		aggregator: aggregator,
		provider:   provider,
		transcript: transcript,
	}
}

// Run consumes inbound messages until ctx is canceled or the bus closes.
// Each event gets its own goroutine: a handler parked in the media
// debounce window or a backend call must not block other chats.
func (l *Loop) Run(ctx context.Context) {
	for {
		msg, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handle(ctx, msg)
		}()
	}
}

// Stop waits for in-flight handlers to finish.
func (l *Loop) Stop() {
	l.wg.Wait()
	if l.transcript != nil {
		l.transcript.Flush()
	}
}

func (l *Loop) handle(ctx context.Context, msg bus.InboundMessage) {
	chatID := msg.ChatID

	// Awaiting-role resolves before anything else, commands included: the
	// next text event becomes the new persona no matter what it says.
	if l.sessions.Mode(chatID) == session.ModeAwaitingRole {
		if msg.Content == "" {
			// A bare photo cannot name a role; stay in awaiting state.
			return
		}
		l.sessions.Reset(chatID, msg.Content)
		l.sessions.SetMode(chatID, session.ModeNormal)
		l.reply(ctx, msg, roleChangedText, bus.MarkupMainKeyboard)
		return
	}

	if msg.Content == "/start" {
		l.sessions.Ensure(chatID)
		l.reply(ctx, msg, welcomeText, bus.MarkupMainKeyboard)
		return
	}

	switch msg.Content {
	case bus.ButtonViewContext:
		l.showContext(ctx, msg)
		return
	case bus.ButtonChangeRole:
		l.sessions.SetMode(chatID, session.ModeAwaitingRole)
		l.reply(ctx, msg, rolePromptText, bus.MarkupForceReply)
		return
	}

	// Fold media-group bursts into one submission. Only one handler per
	// group gets true; the rest must not produce any further effect.
	sub, claimed := l.aggregator.Submit(ctx, msg.MediaScope, msg.Content, msg.Images)
	if !claimed {
		return
	}

	text := sub.Caption
	images := sub.Images

	if (text == "" && len(images) == 0) || strings.HasPrefix(text, "/") {
		return
	}

	l.sessions.Ensure(chatID)

	logContent := text
	if logContent == "" {
		logContent = fmt.Sprintf("Photo (%d pcs)", len(images))
	}
	l.transcript.Append(chatID, protocoltypes.RoleUser, logContent)

	l.reply(ctx, msg, requestingText, bus.MarkupNone)

	var userTurn protocoltypes.Message
	if len(images) > 0 {
		prompt := text
		if prompt == "" {
			prompt = describeImages
		}
		userTurn = protocoltypes.UserMessageParts(prompt, images)
	} else {
		userTurn = protocoltypes.UserMessage(text)
	}

	// The user turn is appended before the call and kept even if the
	// backend fails, so the user's contribution is never lost.
	l.sessions.Append(chatID, userTurn)

	response, err := l.provider.Chat(ctx, l.sessions.History(chatID))
	if err != nil {
		l.replyWithFailure(ctx, msg, err)
		return
	}

	l.send(ctx, bus.OutboundMessage{
		Channel:   msg.Channel,
		ChatID:    chatID,
		Content:   markdown.EscapeV2(response),
		ParseMode: bus.ParseModeMarkdownV2,
	})

	l.transcript.Append(chatID, protocoltypes.RoleAssistant, response)
	l.sessions.Append(chatID, protocoltypes.AssistantMessage(response))
	l.sessions.Truncate(chatID)
}

// ProcessDirect relays one text turn for a non-platform session (the chat
// REPL). It shares the session store and provider with the bus path but
// returns the reply instead of publishing it.
func (l *Loop) ProcessDirect(ctx context.Context, chatID, text string) (string, error) {
	l.sessions.Ensure(chatID)
	l.sessions.Append(chatID, protocoltypes.UserMessage(text))
	l.transcript.Append(chatID, protocoltypes.RoleUser, text)

	response, err := l.provider.Chat(ctx, l.sessions.History(chatID))
	if err != nil {
		return "", err
	}

	l.transcript.Append(chatID, protocoltypes.RoleAssistant, response)
	l.sessions.Append(chatID, protocoltypes.AssistantMessage(response))
	l.sessions.Truncate(chatID)
	return response, nil
}

func (l *Loop) showContext(ctx context.Context, msg bus.InboundMessage) {
	summary := l.sessions.Describe(msg.ChatID)
	if summary == "" {
		l.reply(ctx, msg, emptyContext, bus.MarkupNone)
		return
	}
	l.reply(ctx, msg, "Current chat context:\n\n"+summary, bus.MarkupNone)
}

// replyWithFailure maps a backend error to the user-facing diagnostic.
// History keeps the already-appended user turn; no assistant turn is
// added and nothing is retried.
func (l *Loop) replyWithFailure(ctx context.Context, msg bus.InboundMessage, err error) {
	var (
		statusErr    *openaicompat.StatusError
		apiErr       *openaicompat.APIError
		malformedErr *openaicompat.MalformedError
	)

	var text string
	switch {
	case errors.As(err, &statusErr):
		text = fmt.Sprintf(
			"An error occurred while contacting the completion API. Status: %d, Message: %s",
			statusErr.StatusCode, statusErr.Body,
		)
	case errors.As(err, &apiErr):
		text = fmt.Sprintf("Completion API Error: %s", apiErr.Message)
	case errors.As(err, &malformedErr):
		text = "Failed to get a response. Check the response format."
		logger.ErrorCF("agent", "Invalid response format from completion API", map[string]any{
			"chat_id": msg.ChatID,
			"body":    malformedErr.Body,
		})
	default:
		text = "An error occurred while sending a request to the completion API."
	}

	logger.ErrorCF("agent", "Error requesting completion API", map[string]any{
		"chat_id": msg.ChatID,
		"error":   err.Error(),
	})

	l.reply(ctx, msg, text, bus.MarkupNone)
}

func (l *Loop) reply(ctx context.Context, msg bus.InboundMessage, text string, markup bus.Markup) {
	l.send(ctx, bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: text,
		Markup:  markup,
	})
}

func (l *Loop) send(ctx context.Context, out bus.OutboundMessage) {
	if err := l.bus.PublishOutbound(ctx, out); err != nil {
		logger.WarnCF("agent", "Dropping outbound message", map[string]any{
			"chat_id": out.ChatID,
			"error":   err.Error(),
		})
	}
}
