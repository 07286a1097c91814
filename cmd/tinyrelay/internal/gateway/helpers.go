package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/tinyland-inc/tinyrelay/cmd/tinyrelay/internal"
	"github.com/tinyland-inc/tinyrelay/pkg/agent"
	"github.com/tinyland-inc/tinyrelay/pkg/bus"
	"github.com/tinyland-inc/tinyrelay/pkg/channels"
	"github.com/tinyland-inc/tinyrelay/pkg/chatlog"
	"github.com/tinyland-inc/tinyrelay/pkg/logger"
	"github.com/tinyland-inc/tinyrelay/pkg/media"
	"github.com/tinyland-inc/tinyrelay/pkg/providers/openaicompat"
	"github.com/tinyland-inc/tinyrelay/pkg/session"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	provider := openaicompat.NewClient(
		cfg.Provider.APIBase,
		cfg.Provider.APIKey,
		cfg.Provider.Model,
		cfg.RequestTimeout(),
	)

	msgBus := bus.NewMessageBus()
	sessions := session.NewStore(cfg.Agent.SystemPrompt, cfg.Agent.MaxHistory)
	aggregator := media.NewAggregator(cfg.MediaDebounce(), cfg.MediaStaleAfter())
	transcript := chatlog.New(cfg.Logs.Dir)

	loop := agent.NewLoop(msgBus, sessions, aggregator, provider, transcript)

	telegramChannel, err := channels.NewTelegramChannel(channels.TelegramConfig{
		Token:       cfg.Telegram.Token,
		AllowFrom:   cfg.Telegram.AllowFrom,
		PollTimeout: cfg.Telegram.PollTimeoutSeconds,
	}, msgBus)
	if err != nil {
		return fmt.Errorf("error creating telegram channel: %w", err)
	}

	channelManager := channels.NewManager(msgBus)
	channelManager.Register(telegramChannel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channelManager.StartAll(ctx); err != nil {
		return fmt.Errorf("error starting channels: %w", err)
	}

	go channelManager.RouteOutbound(ctx)
	go aggregator.RunSweeper(ctx, cfg.MediaSweepInterval())
	go loop.Run(ctx)

	logger.InfoCF("gateway", "Gateway started", map[string]any{
		"model":       provider.Model(),
		"max_history": cfg.Agent.MaxHistory,
	})
	fmt.Println("✓ Bot is running and listening for messages!")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	channelManager.StopAll(context.Background())
	msgBus.Close()
	loop.Stop()
	fmt.Println("✓ Gateway stopped")

	return nil
}
