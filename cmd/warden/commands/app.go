package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/audit"
	"github.com/MEKXH/warden/internal/command"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/metrics"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/storage"
	"github.com/MEKXH/warden/internal/watchlist"
)

// app holds the services shared by the server and the CLI subcommands.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	entries   *watchlist.Store
	requests  *approval.Store
	watchlist *watchlist.Service
	approvals *approval.Service
	registry  *command.Registry
}

// newApp opens storage and wires the services. A nil notifier gives a
// read-only app whose audit trail only goes to the JSONL file.
func newApp(cfg *config.Config, notifier notify.Notifier, reg prometheus.Registerer) (*app, error) {
	dataDir := cfg.DataDirPath()
	db, err := storage.Open(dataDir)
	if err != nil {
		return nil, err
	}

	entries, err := watchlist.NewStore(db)
	if err != nil {
		_ = storage.Close(db)
		return nil, fmt.Errorf("init watchlist store: %w", err)
	}
	requests, err := approval.NewStore(db)
	if err != nil {
		_ = storage.Close(db)
		return nil, fmt.Errorf("init request store: %w", err)
	}

	rec := audit.Multi{audit.NewWriter(dataDir)}
	if notifier != nil {
		rec = append(rec, audit.NewChannelSink(notifier, cfg.Discord.ModLogChannelID))
	}
	m := metrics.New(reg)
	evaluator := policy.NewEvaluator(cfg.Policy())

	wl := watchlist.NewService(entries, notifier, evaluator, rec, m, watchlist.Config{
		NoticeChannelID:   cfg.Discord.WatchlistChannelID,
		DirectAddPolicy:   watchlist.DirectAddPolicy(cfg.Watchlist.DirectAddPolicy),
		Location:          cfg.Location(),
		AvatarURLTemplate: cfg.Watchlist.AvatarURLTemplate,
		TentativeGrace:    cfg.TentativeGrace(),
	})
	approvals := approval.NewService(requests, wl, notifier, evaluator, rec, m, approval.Config{
		RequestChannelID: cfg.Discord.RequestChannelID,
	})

	registry := command.NewRegistry(cfg.Discord.CommandPrefix)
	registry.Register(&command.HelpCommand{})
	registry.Register(&command.VersionCommand{})
	registry.Register(&command.StatusCommand{Entries: wl, Requests: approvals})
	registry.Register(&command.WatchlistCommand{Watchlist: wl, Requests: approvals})
	registry.Register(&command.RefreshCommand{Watchlist: wl})

	return &app{
		cfg:       cfg,
		db:        db,
		entries:   entries,
		requests:  requests,
		watchlist: wl,
		approvals: approvals,
		registry:  registry,
	}, nil
}

func (a *app) Close() error {
	return storage.Close(a.db)
}
