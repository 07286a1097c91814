package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/tinyrelay/cmd/tinyrelay/internal"
	"github.com/tinyland-inc/tinyrelay/cmd/tinyrelay/internal/chat"
	"github.com/tinyland-inc/tinyrelay/cmd/tinyrelay/internal/gateway"
	"github.com/tinyland-inc/tinyrelay/cmd/tinyrelay/internal/version"
)

func NewTinyrelayCommand() *cobra.Command {
	short := fmt.Sprintf("%s tinyrelay - Telegram to LLM relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "tinyrelay",
		Short:   short,
		Example: "tinyrelay gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		chat.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewTinyrelayCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
