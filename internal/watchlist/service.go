package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MEKXH/warden/internal/audit"
	"github.com/MEKXH/warden/internal/metrics"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
)

// DirectAddPolicy decides what a direct add does with an existing entry.
type DirectAddPolicy string

const (
	// PolicyReject refuses the add with ErrAlreadyListed.
	PolicyReject DirectAddPolicy = "reject"
	// PolicyReplace posts a new notice, overwrites the entry and drops the old notice.
	PolicyReplace DirectAddPolicy = "replace"
)

// Via tells Add which path produced the entry.
type Via string

const (
	ViaDirect  Via = "direct"
	ViaRequest Via = "request"
)

// DefaultTentativeGrace is how long a pending_post reservation may live
// before refresh prunes it.
const DefaultTentativeGrace = 5 * time.Minute

// Config controls the watchlist service.
type Config struct {
	NoticeChannelID   string
	DirectAddPolicy   DirectAddPolicy
	Location          *time.Location
	AvatarURLTemplate string
	TentativeGrace    time.Duration
}

// AddInput describes one add.
type AddInput struct {
	Subject string
	Reason  string
	// Actor is authorized for the add. On the request path it is the reviewer.
	Actor policy.Actor
	// Requester is credited as the author on the request path.
	Requester string
	Via       Via
}

// RemoveResult reports what a remove did.
type RemoveResult struct {
	Entry          Entry
	NoticeDeleted  bool
	NoticeFailures int
}

// Authorizer gates operations by actor.
type Authorizer interface {
	Authorize(op policy.Operation, actor policy.Actor) error
}

// Service owns the watchlist business rules.
type Service struct {
	store    *Store
	notifier notify.Notifier
	authz    Authorizer
	audit    audit.Recorder
	metrics  *metrics.Recorder
	cfg      Config
	locks    *keyLocks
	now      func() time.Time
}

// NewService wires the watchlist service. audit and metrics may be nil.
func NewService(store *Store, notifier notify.Notifier, authz Authorizer, rec audit.Recorder, m *metrics.Recorder, cfg Config) *Service {
	if cfg.DirectAddPolicy == "" {
		cfg.DirectAddPolicy = PolicyReject
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TentativeGrace <= 0 {
		cfg.TentativeGrace = DefaultTentativeGrace
	}
	return &Service{
		store:    store,
		notifier: notifier,
		authz:    authz,
		audit:    rec,
		metrics:  m,
		cfg:      cfg,
		locks:    newKeyLocks(),
		now:      time.Now,
	}
}

// Location returns the time zone used for listing times.
func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

// Add lists a subject and posts its notice.
func (s *Service) Add(ctx context.Context, in AddInput) (entry Entry, err error) {
	defer func() { s.metrics.Operation("add", err) }()

	op := policy.OpAdd
	if in.Via == ViaRequest {
		op = policy.OpReview
	}
	if err := s.authorize(op, in.Actor); err != nil {
		return Entry{}, err
	}
	subject := strings.TrimSpace(in.Subject)
	reason := strings.TrimSpace(in.Reason)
	if subject == "" || reason == "" {
		return Entry{}, fmt.Errorf("%w: subject and reason are required", ErrInvalidInput)
	}

	release, err := s.locks.acquire(ctx, Fold(subject))
	if err != nil {
		return Entry{}, err
	}
	defer release()

	now := s.now().In(s.cfg.Location).Unix()
	entry = Entry{
		SubjectKey: subject,
		Reason:     reason,
		CreatedAt:  now,
		UpdatedAt:  now,
		State:      StatePendingPost,
		AddedBy:    in.Actor.Label(),
	}
	if in.Via == ViaRequest {
		entry.AddedBy = in.Requester
		entry.ApprovedBy = in.Actor.Label()
	}

	if in.Via != ViaRequest && s.cfg.DirectAddPolicy == PolicyReplace {
		existing, ok, err := s.store.Get(ctx, subject)
		if err != nil {
			return Entry{}, err
		}
		if ok && existing.Active() {
			return s.replace(ctx, existing, entry, in.Actor)
		}
	}

	if err := s.store.InsertIfAbsent(ctx, entry); err != nil {
		return Entry{}, err
	}

	// Rollback and activation must not be skipped because the caller gave up.
	work := context.WithoutCancel(ctx)
	ref, err := s.postNotice(ctx, entry)
	if err != nil {
		if cleanupErr := s.store.DeleteTentative(work, subject); cleanupErr != nil {
			slog.Error("watchlist reservation cleanup failed", "subject", subject, "error", cleanupErr)
		}
		return Entry{}, err
	}
	if err := s.store.Activate(work, subject, ref, now); err != nil {
		s.deleteNotice(work, ref, subject)
		return Entry{}, err
	}
	entry.NoticeRef = ref
	entry.State = StateActive

	slog.Info("watchlist entry added", "subject", subject, "actor", in.Actor.ID, "via", string(in.Via))
	if in.Via != ViaRequest {
		audit.Emit(ctx, s.audit, audit.Event{
			Action:  audit.ActionAdded,
			ActorID: in.Actor.ID,
			Actor:   in.Actor.Label(),
			Subject: subject,
			Reason:  reason,
		})
	}
	return entry, nil
}

// replace overwrites an active entry. The new notice is posted before the
// row changes so a failed post leaves the old listing intact.
func (s *Service) replace(ctx context.Context, old, entry Entry, actor policy.Actor) (Entry, error) {
	entry.State = StateActive
	ref, err := s.postNotice(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	entry.NoticeRef = ref
	if err := s.store.Upsert(ctx, entry); err != nil {
		s.deleteNotice(ctx, ref, entry.SubjectKey)
		return Entry{}, err
	}
	s.deleteNotice(ctx, old.NoticeRef, old.SubjectKey)

	slog.Info("watchlist entry replaced", "subject", entry.SubjectKey, "actor", actor.ID)
	audit.Emit(ctx, s.audit, audit.Event{
		Action:  audit.ActionReplaced,
		ActorID: actor.ID,
		Actor:   actor.Label(),
		Subject: entry.SubjectKey,
		Reason:  entry.Reason,
		Detail:  "previous reason: " + old.Reason,
	})
	return entry, nil
}

// Remove delists a subject. The row is deleted first; the notice is removed
// on a best-effort basis afterwards.
func (s *Service) Remove(ctx context.Context, actor policy.Actor, subject string) (res RemoveResult, err error) {
	defer func() { s.metrics.Operation("remove", err) }()

	if err := s.authorize(policy.OpRemove, actor); err != nil {
		return RemoveResult{}, err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return RemoveResult{}, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}

	release, err := s.locks.acquire(ctx, Fold(subject))
	if err != nil {
		return RemoveResult{}, err
	}
	defer release()

	entry, ok, err := s.store.Get(ctx, subject)
	if err != nil {
		return RemoveResult{}, err
	}
	if !ok || !entry.Active() {
		return RemoveResult{}, ErrNotListed
	}
	if err := s.store.Delete(ctx, subject); err != nil {
		return RemoveResult{}, err
	}

	res = RemoveResult{Entry: entry}
	if s.deleteNotice(ctx, entry.NoticeRef, entry.SubjectKey) {
		res.NoticeDeleted = true
	} else {
		res.NoticeFailures = 1
	}

	slog.Info("watchlist entry removed", "subject", entry.SubjectKey, "actor", actor.ID, "notice_deleted", res.NoticeDeleted)
	audit.Emit(ctx, s.audit, audit.Event{
		Action:  audit.ActionRemoved,
		ActorID: actor.ID,
		Actor:   actor.Label(),
		Subject: entry.SubjectKey,
		Reason:  entry.Reason,
	})
	return res, nil
}

// Status returns the active entry for subject.
func (s *Service) Status(ctx context.Context, subject string) (Entry, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Entry{}, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	entry, ok, err := s.store.Get(ctx, subject)
	if err != nil {
		return Entry{}, err
	}
	if !ok || !entry.Active() {
		return Entry{}, ErrNotListed
	}
	return entry, nil
}

// StatusFor is Status gated for actor.
func (s *Service) StatusFor(ctx context.Context, actor policy.Actor, subject string) (Entry, error) {
	if err := s.authorize(policy.OpStatus, actor); err != nil {
		return Entry{}, err
	}
	return s.Status(ctx, subject)
}

// List returns all active entries in listing order.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.Active() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Service) authorize(op policy.Operation, actor policy.Actor) error {
	if s.authz == nil {
		return nil
	}
	return s.authz.Authorize(op, actor)
}

func (s *Service) postNotice(ctx context.Context, entry Entry) (string, error) {
	if s.cfg.NoticeChannelID == "" {
		return "", fmt.Errorf("watchlist channel not configured: %w", notify.ErrNotFound)
	}
	ref, err := s.notifier.Post(ctx, s.cfg.NoticeChannelID, Notice(entry, s.cfg.AvatarURLTemplate))
	if err != nil {
		return "", fmt.Errorf("post notice for %q: %w", entry.SubjectKey, err)
	}
	return ref, nil
}

// deleteNotice removes a posted notice and reports whether it succeeded.
func (s *Service) deleteNotice(ctx context.Context, ref, subject string) bool {
	if ref == "" || s.cfg.NoticeChannelID == "" {
		s.metrics.NoticeDeleteFailed()
		return false
	}
	err := s.notifier.Delete(ctx, s.cfg.NoticeChannelID, ref)
	if err == nil {
		return true
	}
	s.metrics.NoticeDeleteFailed()
	level := slog.LevelWarn
	if errors.Is(err, notify.ErrNotFound) {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "watchlist notice delete failed", "subject", subject, "notice_ref", ref, "error", err)
	return false
}
