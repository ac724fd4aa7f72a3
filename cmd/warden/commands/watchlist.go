package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MEKXH/warden/internal/channel/discord"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/spf13/cobra"
)

const listTimeLayout = "2006-01-02 15:04 MST"

// newNotifier builds the REST-only Discord client used by CLI commands
// that post or delete notices.
var newNotifier = func(cfg *config.Config) (notify.Notifier, error) {
	bot := discord.New(&cfg.Discord)
	if err := bot.Init(); err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	return bot, nil
}

func NewWatchlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"kos"},
		Short:   "Inspect and maintain the KOS list",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List active entries",
			RunE:  runWatchlistList,
		},
		&cobra.Command{
			Use:   "status <username>",
			Short: "Show one entry",
			Args:  cobra.ExactArgs(1),
			RunE:  runWatchlistStatus,
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Delete and repost every KOS notice",
			RunE:  runWatchlistRefresh,
		},
	)

	return cmd
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := newApp(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.watchlist.List(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No KOS entries.")
		return nil
	}

	const (
		wUser    = 18
		wAdded   = 22
		wAddedBy = 16
		wReason  = 40
	)
	out := cmdOut(cmd)
	printTableHead(out, "KOS List", []column{
		{"USERNAME", wUser},
		{"ADDED", wAdded},
		{"ADDED BY", wAddedBy},
		{"REASON", wReason},
	})

	loc := a.watchlist.Location()
	for _, e := range entries {
		printTableRow(out,
			cell(wUser).Bold(true).Render(truncate(e.SubjectKey, wUser)),
			cell(wAdded).Foreground(dimColor).Render(time.Unix(e.CreatedAt, 0).In(loc).Format(listTimeLayout)),
			cell(wAddedBy).Render(truncate(orNone(e.AddedBy), wAddedBy)),
			cell(wReason).Render(truncate(oneLine(e.Reason), wReason)),
		)
	}
	fmt.Fprintln(out)
	return nil
}

func runWatchlistStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := newApp(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.watchlist.Status(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	loc := a.watchlist.Location()
	fmt.Printf("Username: %s\n", entry.SubjectKey)
	fmt.Printf("Reason:   %s\n", entry.Reason)
	fmt.Printf("Added:    %s\n", time.Unix(entry.CreatedAt, 0).In(loc).Format(listTimeLayout))
	fmt.Printf("Added by: %s\n", orNone(entry.AddedBy))
	if entry.ApprovedBy != "" {
		fmt.Printf("Approved: %s\n", entry.ApprovedBy)
	}
	fmt.Printf("Notice:   %s\n", orNone(entry.NoticeRef))
	return nil
}

func runWatchlistRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, notifier, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.watchlist.Refresh(context.Background(), policy.System("cli"))
	if err != nil {
		return err
	}
	fmt.Printf("Refreshed %d entries. Failed to delete %d old notices. Pruned %d stale reservations.\n",
		res.Refreshed, res.Failed, res.Pruned)
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
