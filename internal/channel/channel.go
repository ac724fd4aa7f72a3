package channel

import (
	"context"
	"strings"
)

// Channel is a chat platform connection with a start/stop lifecycle.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsAllowed(guildID string) bool
}

// BaseChannel provides common functionality
type BaseChannel struct {
	// AllowList restricts which guilds (servers) are served. Empty allows all.
	AllowList map[string]bool
}

// IsAllowed checks if a guild is served
func (b *BaseChannel) IsAllowed(guildID string) bool {
	if len(b.AllowList) == 0 {
		return true
	}
	guildID = strings.TrimSpace(guildID)
	for allowed := range b.AllowList {
		if strings.TrimSpace(allowed) == guildID {
			return true
		}
	}
	return false
}
