package commands

import (
	"testing"
	"time"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/cron"
	"github.com/MEKXH/warden/internal/notify/notifytest"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	useTempHome(t)
	cfg := config.DefaultConfig()
	cfg.Discord.WatchlistChannelID = "kos-channel"
	a, err := newApp(cfg, notifytest.New(), nil)
	if err != nil {
		t.Fatalf("newApp error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewApp_RegistersCommands(t *testing.T) {
	a := newTestApp(t)

	for _, name := range []string{"help", "version", "status", "watchlist", "refresh_kos"} {
		if _, ok := a.registry.Get(name); !ok {
			t.Fatalf("expected command %q registered", name)
		}
	}
}

func TestScheduleRefresh(t *testing.T) {
	a := newTestApp(t)
	svc := cron.NewService(time.UTC)

	if err := scheduleRefresh(svc, a, "  "); err != nil {
		t.Fatalf("scheduleRefresh empty error: %v", err)
	}
	if len(svc.ListJobs()) != 0 {
		t.Fatal("expected no job for empty schedule")
	}

	if err := scheduleRefresh(svc, a, "0 */6 * * *"); err != nil {
		t.Fatalf("scheduleRefresh error: %v", err)
	}
	jobs := svc.ListJobs()
	if len(jobs) != 1 || jobs[0].Name != refreshJobName {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}

	if err := scheduleRefresh(svc, a, "whenever"); err == nil {
		t.Fatal("expected invalid expression error")
	}
}
