package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/tinyrelay/cmd/tinyrelay/internal"
	"github.com/tinyland-inc/tinyrelay/pkg/agent"
	"github.com/tinyland-inc/tinyrelay/pkg/bus"
	"github.com/tinyland-inc/tinyrelay/pkg/chatlog"
	"github.com/tinyland-inc/tinyrelay/pkg/logger"
	"github.com/tinyland-inc/tinyrelay/pkg/media"
	"github.com/tinyland-inc/tinyrelay/pkg/providers/openaicompat"
	"github.com/tinyland-inc/tinyrelay/pkg/session"
)

func chatCmd(sessionKey string, debug bool) error {
	if sessionKey == "" {
		sessionKey = "cli:default"
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return errors.New("completion API key not found: set GROK_API_KEY in the environment or .env")
	}

	provider := openaicompat.NewClient(
		cfg.Provider.APIBase,
		cfg.Provider.APIKey,
		cfg.Provider.Model,
		cfg.RequestTimeout(),
	)

	sessions := session.NewStore(cfg.Agent.SystemPrompt, cfg.Agent.MaxHistory)
	aggregator := media.NewAggregator(cfg.MediaDebounce(), cfg.MediaStaleAfter())
	transcript := chatlog.New(cfg.Logs.Dir)
	loop := agent.NewLoop(bus.NewMessageBus(), sessions, aggregator, provider, transcript)

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", internal.Logo)
	interactiveMode(loop, sessionKey)
	loop.Stop()

	return nil
}

func interactiveMode(loop *agent.Loop, sessionKey string) {
	prompt := fmt.Sprintf("%s You: ", internal.Logo)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".tinyrelay_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		ctx := context.Background()
		response, err := loop.ProcessDirect(ctx, sessionKey, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s %s\n\n", internal.Logo, response)
	}
}
