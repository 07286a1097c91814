package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPublishConsumeInbound(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()
	ctx := context.Background()

	in := InboundMessage{Channel: "telegram", ChatID: "1", Content: "hi"}
	if err := mb.PublishInbound(ctx, in); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, ok := mb.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("consume returned no message")
	}
	if got.ChatID != "1" || got.Content != "hi" {
		t.Errorf("message: %+v", got)
	}
}

func TestPublishSubscribeOutbound(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()
	ctx := context.Background()

	out := OutboundMessage{Channel: "telegram", ChatID: "1", Content: "reply", ParseMode: ParseModeMarkdownV2}
	if err := mb.PublishOutbound(ctx, out); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, ok := mb.SubscribeOutbound(ctx)
	if !ok {
		t.Fatal("subscribe returned no message")
	}
	if got.Content != "reply" || got.ParseMode != ParseModeMarkdownV2 {
		t.Errorf("message: %+v", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	if err := mb.PublishInbound(context.Background(), InboundMessage{}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("inbound after close: %v", err)
	}
	if err := mb.PublishOutbound(context.Background(), OutboundMessage{}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("outbound after close: %v", err)
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	done := make(chan bool, 1)
	go func() {
		_, ok := mb.ConsumeInbound(context.Background())
		done <- ok
	}()

	mb.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("consume reported a message after close")
		}
	case <-time.After(time.Second):
		t.Fatal("consume did not unblock on close")
	}
}

func TestConsumeRespectsContext(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Error("consume reported a message on a canceled context")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()
	mb.Close()
}
