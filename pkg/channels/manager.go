package channels

import (
	"context"

	"github.com/tinyland-inc/tinyrelay/pkg/bus"
	"github.com/tinyland-inc/tinyrelay/pkg/logger"
)

// Manager owns the running channels and routes outbound bus messages to
// them. Delivery is best effort: a rejected send is logged, never retried,
// and history already updated upstream is not rolled back.
type Manager struct {
	bus      *bus.MessageBus
	channels map[string]Channel
}

func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		bus:      msgBus,
		channels: make(map[string]Channel),
	}
}

func (m *Manager) Register(ch Channel) {
	m.channels[ch.Name()] = ch
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	ch, ok := m.channels[name]
	return ch, ok
}

func (m *Manager) StartAll(ctx context.Context) error {
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Error starting channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
			return err
		}
	}
	return nil
}

func (m *Manager) StopAll(ctx context.Context) {
	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			logger.WarnCF("channels", "Error stopping channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
}

// RouteOutbound consumes outbound messages until ctx is canceled or the
// bus closes.
func (m *Manager) RouteOutbound(ctx context.Context) {
	for {
		out, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		ch, found := m.channels[out.Channel]
		if !found {
			logger.WarnCF("channels", "Outbound message for unknown channel", map[string]any{
				"channel": out.Channel,
				"chat_id": out.ChatID,
			})
			continue
		}

		if err := ch.Send(ctx, out); err != nil {
			logger.ErrorCF("channels", "Error sending message", map[string]any{
				"channel": out.Channel,
				"chat_id": out.ChatID,
				"error":   err.Error(),
			})
		}
	}
}
