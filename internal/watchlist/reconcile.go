package watchlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MEKXH/warden/internal/audit"
	"github.com/MEKXH/warden/internal/policy"
)

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Pruned    int `json:"pruned"`
}

// Refresh reposts every active notice and repoints the stored references.
// Failures on individual entries are counted, not returned. The pass is not
// transactional. A cancelled ctx stops it between entries; the counts so far
// are returned together with the context error.
func (s *Service) Refresh(ctx context.Context, actor policy.Actor) (res RefreshResult, err error) {
	defer func() {
		s.metrics.Operation("refresh", err)
		s.metrics.RefreshEntry("refreshed", res.Refreshed)
		s.metrics.RefreshEntry("failed", res.Failed)
		s.metrics.RefreshEntry("pruned", res.Pruned)
	}()

	if err := s.authorize(policy.OpRefresh, actor); err != nil {
		return RefreshResult{}, err
	}

	pruned, err := s.pruneTentative(ctx)
	res.Pruned = pruned
	if err != nil {
		return res, err
	}

	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return res, err
	}
	for _, listed := range entries {
		if !listed.Active() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		refreshed, failed, err := s.refreshOne(ctx, listed.SubjectKey)
		if err != nil {
			return res, err
		}
		if refreshed {
			res.Refreshed++
		}
		res.Failed += failed
	}

	slog.Info("watchlist refreshed", "actor", actor.ID, "refreshed", res.Refreshed, "failed", res.Failed, "pruned", res.Pruned)
	audit.Emit(ctx, s.audit, audit.Event{
		Action:  audit.ActionRefreshed,
		ActorID: actor.ID,
		Actor:   actor.Label(),
		Detail:  fmt.Sprintf("refreshed=%d failed=%d pruned=%d", res.Refreshed, res.Failed, res.Pruned),
	})
	return res, nil
}

// refreshOne reposts a single entry under its key lock. It re-reads the row so
// a concurrent remove is honored. Only storage errors are returned.
func (s *Service) refreshOne(ctx context.Context, subject string) (bool, int, error) {
	release, err := s.locks.acquire(ctx, Fold(subject))
	if err != nil {
		return false, 0, err
	}
	defer release()

	entry, ok, err := s.store.Get(ctx, subject)
	if err != nil {
		return false, 0, err
	}
	if !ok || !entry.Active() {
		return false, 0, nil
	}

	// Once the old notice is gone the entry must end up with a live one, so
	// the remaining steps ignore cancellation. Each notifier call still has
	// its own timeout.
	work := context.WithoutCancel(ctx)

	failed := 0
	if !s.deleteNotice(work, entry.NoticeRef, entry.SubjectKey) {
		failed++
	}
	ref, err := s.postNotice(work, entry)
	if err != nil {
		slog.Warn("watchlist notice repost failed", "subject", entry.SubjectKey, "error", err)
		return false, failed + 1, nil
	}
	if err := s.store.SetNoticeRef(work, entry.SubjectKey, ref, s.now().Unix()); err != nil {
		s.deleteNotice(work, ref, entry.SubjectKey)
		return false, failed, err
	}
	return true, failed, nil
}

// pruneTentative drops reservations whose notice never got posted.
func (s *Service) pruneTentative(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.TentativeGrace).Unix()
	stale, err := s.store.ListTentative(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, entry := range stale {
		release, err := s.locks.acquire(ctx, entry.SubjectFold)
		if err != nil {
			return pruned, err
		}
		err = s.store.DeleteTentative(ctx, entry.SubjectKey)
		release()
		if err != nil {
			return pruned, err
		}
		slog.Info("pruned stale watchlist reservation", "subject", entry.SubjectKey)
		pruned++
	}
	return pruned, nil
}
