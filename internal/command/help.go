package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/MEKXH/warden/internal/notify"
)

// HelpCommand lists all available commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List available commands" }

func (c *HelpCommand) Execute(_ context.Context, _ string, env Env) Result {
	var sb strings.Builder
	if env.ListCommands != nil {
		for _, cmd := range env.ListCommands() {
			sb.WriteString(fmt.Sprintf("- `%s%s` %s\n", env.Prefix, cmd.Name(), cmd.Description()))
		}
	}
	return Result{Title: "Available commands", Content: sb.String(), Color: notify.ColorBlurple, Private: true}
}
