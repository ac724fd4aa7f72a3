package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/version"
	"github.com/MEKXH/warden/internal/watchlist"
)

// StatusCommand shows a runtime summary.
type StatusCommand struct {
	Entries interface {
		List(ctx context.Context) ([]watchlist.Entry, error)
	}
	Requests interface {
		ListOpen(ctx context.Context) ([]approval.Request, error)
	}
}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Show bot status" }

func (c *StatusCommand) Execute(ctx context.Context, _ string, _ Env) Result {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- **Version:** `%s`\n", version.Version))

	if c.Entries != nil {
		if entries, err := c.Entries.List(ctx); err == nil {
			sb.WriteString(fmt.Sprintf("- **KOS entries:** %d\n", len(entries)))
		} else {
			sb.WriteString("- **KOS entries:** unavailable\n")
		}
	}
	if c.Requests != nil {
		if open, err := c.Requests.ListOpen(ctx); err == nil {
			sb.WriteString(fmt.Sprintf("- **Open requests:** %d\n", len(open)))
		} else {
			sb.WriteString("- **Open requests:** unavailable\n")
		}
	}
	return Result{Title: "Warden Status", Content: sb.String(), Color: notify.ColorBlurple, Private: true}
}
