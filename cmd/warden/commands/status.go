package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/watchlist"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show Warden configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("=== Warden Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (run 'warden init')")
	}

	fmt.Println("\nDiscord:")
	fmt.Printf("  Token:             %s\n", configured(cfg.Discord.Token))
	fmt.Printf("  Guild:             %s\n", orNone(cfg.Discord.GuildID))
	fmt.Printf("  KOS channel:       %s\n", orNone(cfg.Discord.WatchlistChannelID))
	fmt.Printf("  Request channel:   %s\n", orNone(cfg.Discord.RequestChannelID))
	fmt.Printf("  Mod log channel:   %s\n", orNone(cfg.Discord.ModLogChannelID))
	fmt.Printf("  Command prefix:    %s\n", cfg.Discord.CommandPrefix)
	r := cfg.Discord.Roles
	fmt.Printf("  Roles: admin=%d add=%d remove=%d request=%d review=%d refresh=%d\n",
		len(r.Admin), len(r.Add), len(r.Remove), len(r.Request), len(r.Review), len(r.Refresh))

	fmt.Println("\nWatchlist:")
	fmt.Printf("  Timezone:          %s\n", cfg.Watchlist.Timezone)
	fmt.Printf("  Direct add policy: %s\n", cfg.Watchlist.DirectAddPolicy)
	schedule := strings.TrimSpace(cfg.Watchlist.RefreshSchedule)
	if schedule == "" {
		schedule = "disabled"
	}
	fmt.Printf("  Refresh schedule:  %s\n", schedule)
	fmt.Printf("  Tentative grace:   %s\n", cfg.TentativeGrace())

	fmt.Println("\nStorage:")
	fmt.Printf("  Data dir: %s\n", cfg.DataDirPath())
	a, err := newApp(cfg, nil, nil)
	if err != nil {
		fmt.Printf("  Status:   unavailable (%v)\n", err)
	} else {
		defer a.Close()
		ctx := context.Background()
		active, aerr := a.entries.Count(ctx, watchlist.StateActive)
		pending, perr := a.entries.Count(ctx, watchlist.StatePendingPost)
		openReqs, oerr := a.approvals.ListOpen(ctx)
		if aerr != nil || perr != nil || oerr != nil {
			fmt.Println("  Status:   unavailable")
		} else {
			fmt.Printf("  Entries:  %d active, %d pending post\n", active, pending)
			fmt.Printf("  Requests: %d open\n", len(openReqs))
		}
	}

	fmt.Println("\nGateway:")
	if !cfg.Gateway.Enabled {
		fmt.Println("  Status:  disabled")
	} else {
		fmt.Printf("  Address: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
		if cfg.Gateway.Token != "" {
			fmt.Println("  Auth:    token configured")
		} else {
			fmt.Println("  Auth:    no token (refresh disabled)")
		}
	}

	return nil
}

func configured(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not configured"
	}
	return "Configured"
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(not set)"
	}
	return v
}
