package watchlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/notify/notifytest"
	"github.com/MEKXH/warden/internal/policy"
)

func TestRefresh_RepostsEveryEntry(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t, Config{})
	a := mustAdd(t, svc, "Steve", "griefing")
	b := mustAdd(t, svc, "Alex", "stealing")
	posts, deletes := notifier.Posts, notifier.Deletes

	res, err := svc.Refresh(ctx, adminActor)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if res.Refreshed != 2 || res.Failed != 0 {
		t.Fatalf("expected {2 0}, got %+v", res)
	}
	if notifier.Posts-posts != 2 || notifier.Deletes-deletes != 2 {
		t.Fatalf("expected 2 posts and 2 deletes, got %d and %d", notifier.Posts-posts, notifier.Deletes-deletes)
	}

	for _, old := range []Entry{a, b} {
		cur, _, _ := store.Get(ctx, old.SubjectKey)
		if cur.NoticeRef == old.NoticeRef {
			t.Fatalf("expected %s notice ref to change", old.SubjectKey)
		}
		if cur.CreatedAt != old.CreatedAt || cur.Reason != old.Reason || cur.SubjectKey != old.SubjectKey {
			t.Fatalf("refresh rewrote entry fields: before %+v after %+v", old, cur)
		}
		if _, ok := notifier.Get(cur.NoticeRef); !ok {
			t.Fatalf("expected fresh notice for %s", cur.SubjectKey)
		}
	}
	if live := notifier.InChannel(noticeChannel); len(live) != 2 {
		t.Fatalf("expected 2 live notices, got %d", len(live))
	}
}

func TestRefresh_CountsFailedDeletions(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestService(t, Config{})
	var entries []Entry
	for _, name := range []string{"a", "b", "c", "d"} {
		entries = append(entries, mustAdd(t, svc, name, "r"))
	}
	notifier.Drop(entries[0].NoticeRef)
	notifier.Drop(entries[2].NoticeRef)
	posts := notifier.Posts

	res, err := svc.Refresh(ctx, adminActor)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if res.Refreshed != 4 || res.Failed != 2 {
		t.Fatalf("expected {4 2}, got %+v", res)
	}
	if notifier.Posts-posts != 4 {
		t.Fatalf("expected 4 posts, got %d", notifier.Posts-posts)
	}
}

func TestRefresh_PostFailureSkipsEntry(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t, Config{})
	entry := mustAdd(t, svc, "Steve", "griefing")
	notifier.PostErr = errors.New("rate limited")

	res, err := svc.Refresh(ctx, adminActor)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if res.Refreshed != 0 || res.Failed != 1 {
		t.Fatalf("expected {0 1}, got %+v", res)
	}
	cur, ok, _ := store.Get(ctx, "steve")
	if !ok || cur.NoticeRef != entry.NoticeRef {
		t.Fatalf("expected entry to keep its reference, got %+v", cur)
	}
}

func TestRefresh_PrunesStaleReservations(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, Config{TentativeGrace: time.Minute})
	now := time.Unix(10_000, 0)
	svc.now = func() time.Time { return now }

	_ = store.InsertIfAbsent(ctx, Entry{SubjectKey: "stale", Reason: "r", State: StatePendingPost, UpdatedAt: now.Add(-time.Hour).Unix()})
	_ = store.InsertIfAbsent(ctx, Entry{SubjectKey: "fresh", Reason: "r", State: StatePendingPost, UpdatedAt: now.Unix()})

	res, err := svc.Refresh(ctx, adminActor)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if res.Pruned != 1 || res.Refreshed != 0 {
		t.Fatalf("expected one pruned reservation, got %+v", res)
	}
	if _, ok, _ := store.Get(ctx, "stale"); ok {
		t.Fatal("expected stale reservation to be deleted")
	}
	if _, ok, _ := store.Get(ctx, "fresh"); !ok {
		t.Fatal("expected fresh reservation to survive")
	}
	if _, err := svc.Add(ctx, AddInput{Subject: "Stale", Reason: "r", Actor: adminActor}); err != nil {
		t.Fatalf("Add after prune error: %v", err)
	}
}

func TestRefresh_RequiresRole(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	if _, err := svc.Refresh(context.Background(), modActor); !errors.Is(err, policy.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), policy.System("scheduler")); err != nil {
		t.Fatalf("system actor Refresh error: %v", err)
	}
}

func TestRefresh_StopsOnCancelledContext(t *testing.T) {
	svc, _, notifier := newTestService(t, Config{})
	mustAdd(t, svc, "Steve", "griefing")
	posts := notifier.Posts

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Refresh(ctx, adminActor)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Refreshed != 0 || notifier.Posts != posts {
		t.Fatalf("expected no work after cancel, got %+v", res)
	}
}

// cancelAfterPost cancels the refresh context once the first notice is
// reposted and fails any call made with a done context.
type cancelAfterPost struct {
	*notifytest.Memory
	cancel context.CancelFunc
	posted int
}

func (c *cancelAfterPost) Post(ctx context.Context, channelID string, msg notify.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := c.Memory.Post(ctx, channelID, msg)
	c.posted++
	if c.posted == 1 {
		c.cancel()
	}
	return id, err
}

func (c *cancelAfterPost) Delete(ctx context.Context, channelID, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Delete(ctx, channelID, messageID)
}

func TestRefresh_CancelMidPassKeepsEveryNoticeLive(t *testing.T) {
	svc, store, mem := newTestService(t, Config{})
	for _, name := range []string{"p1", "p2", "p3"} {
		mustAdd(t, svc, name, "griefing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.notifier = &cancelAfterPost{Memory: mem, cancel: cancel}

	res, err := svc.Refresh(ctx, adminActor)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Refreshed != 1 || res.Failed != 0 {
		t.Fatalf("expected partial result {1 0}, got %+v", res)
	}

	all, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	for _, e := range all {
		if _, ok := mem.Get(e.NoticeRef); !ok {
			t.Fatalf("entry %s points at a missing notice %q", e.SubjectKey, e.NoticeRef)
		}
	}
	if live := mem.InChannel(noticeChannel); len(live) != 3 {
		t.Fatalf("expected 3 live notices, got %d", len(live))
	}
}
