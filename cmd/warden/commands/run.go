package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/MEKXH/warden/internal/channel"
	"github.com/MEKXH/warden/internal/channel/discord"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/cron"
	"github.com/MEKXH/warden/internal/gateway"
	"github.com/MEKXH/warden/internal/policy"
)

const refreshJobName = "watchlist-refresh"

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the Warden bot",
		RunE:  runServer,
	}

	return cmd
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bot := discord.New(&cfg.Discord)
	if err := bot.Init(); err != nil {
		return fmt.Errorf("discord: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newApp(cfg, bot, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("close storage failed", "error", err)
		}
	}()
	bot.Bind(a.registry, a.approvals)

	cronService := cron.NewService(cfg.Location())
	if err := scheduleRefresh(cronService, a, cfg.Watchlist.RefreshSchedule); err != nil {
		return err
	}
	if err := cronService.Start(ctx); err != nil {
		slog.Warn("cron service failed to start", "error", err)
	}

	chanMgr := channel.NewManager()
	chanMgr.Register(bot)
	if err := chanMgr.StartAll(ctx); err != nil {
		cronService.Stop()
		chanMgr.StopAll(context.Background())
		return err
	}

	errCh := make(chan error, 1)
	var gatewayServer *gateway.Server
	if cfg.Gateway.Enabled {
		gatewayServer = gateway.New(cfg.Gateway, gateway.Options{
			Watchlist: a.watchlist,
			Gatherer:  registry,
		})
		go func() {
			if err := gatewayServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("gateway server failed: %w", err)
			}
		}()
		fmt.Printf("Warden running. Gateway: http://%s\n", gatewayServer.Addr())
	} else {
		fmt.Println("Warden running.")
	}
	fmt.Println("Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("server component failed", "error", runErr)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down")
	cronService.Stop()
	chanMgr.StopAll(shutdownCtx)
	if gatewayServer != nil {
		if err := gatewayServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("gateway shutdown failed", "error", err)
		}
	}

	return runErr
}

// scheduleRefresh registers the periodic refresh when an expression is set.
func scheduleRefresh(svc *cron.Service, a *app, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	job, err := svc.AddJob(refreshJobName, expr, func(ctx context.Context) error {
		res, err := a.watchlist.Refresh(ctx, policy.System("scheduler"))
		if err != nil {
			return err
		}
		slog.Info("scheduled refresh finished", "refreshed", res.Refreshed, "failed", res.Failed, "pruned", res.Pruned)
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	slog.Info("watchlist refresh scheduled", "expr", job.Expr, "next_run", job.NextRun)
	return nil
}
