package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MEKXH/warden/internal/audit"
	"github.com/MEKXH/warden/internal/metrics"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/watchlist"
)

// Watchlist is the part of the watchlist service the workflow drives.
type Watchlist interface {
	Status(ctx context.Context, subject string) (watchlist.Entry, error)
	Add(ctx context.Context, in watchlist.AddInput) (watchlist.Entry, error)
}

// Authorizer gates operations by actor.
type Authorizer interface {
	Authorize(op policy.Operation, actor policy.Actor) error
}

// Config controls where request artifacts are posted.
type Config struct {
	RequestChannelID string
}

// SubmitInput describes a new request.
type SubmitInput struct {
	Subject       string
	Reason        string
	Requester     policy.Actor
	AttachmentURL string
}

// Service orchestrates the request, approve and deny lifecycle.
type Service struct {
	store     *Store
	watchlist Watchlist
	notifier  notify.Notifier
	authz     Authorizer
	audit     audit.Recorder
	metrics   *metrics.Recorder
	cfg       Config
	now       func() time.Time
	newID     func() string
}

// NewService wires the approval workflow. audit and metrics may be nil.
func NewService(store *Store, wl Watchlist, notifier notify.Notifier, authz Authorizer, rec audit.Recorder, m *metrics.Recorder, cfg Config) *Service {
	return &Service{
		store:     store,
		watchlist: wl,
		notifier:  notifier,
		authz:     authz,
		audit:     rec,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Submit records a request and posts it with accept and deny controls.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (req Request, err error) {
	defer func() { s.metrics.Operation("request", err) }()

	if err := s.authorize(policy.OpRequest, in.Requester); err != nil {
		return Request{}, err
	}
	subject := strings.TrimSpace(in.Subject)
	reason := strings.TrimSpace(in.Reason)
	if subject == "" || reason == "" {
		return Request{}, fmt.Errorf("%w: subject and reason are required", watchlist.ErrInvalidInput)
	}
	if _, err := s.watchlist.Status(ctx, subject); err == nil {
		return Request{}, watchlist.ErrAlreadyListed
	} else if !errors.Is(err, watchlist.ErrNotListed) {
		return Request{}, err
	}
	if s.cfg.RequestChannelID == "" {
		return Request{}, fmt.Errorf("request channel not configured: %w", notify.ErrNotFound)
	}

	req = Request{
		ID:            s.newID(),
		SubjectKey:    subject,
		Reason:        reason,
		RequesterID:   in.Requester.ID,
		Requester:     in.Requester.Label(),
		AttachmentURL: strings.TrimSpace(in.AttachmentURL),
		Status:        StatusOpen,
		RequestedAt:   s.now().UTC(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return Request{}, err
	}

	// Cleanup runs even if ctx ends, so no row or live buttons outlive a
	// failed submit.
	work := context.WithoutCancel(ctx)
	ref, err := s.notifier.Post(ctx, s.cfg.RequestChannelID, requestMessage(req))
	if err != nil {
		s.discard(work, req.ID, "")
		return Request{}, fmt.Errorf("post request for %q: %w", subject, err)
	}
	if err := s.store.SetMessageRef(work, req.ID, ref); err != nil {
		s.discard(work, req.ID, ref)
		return Request{}, err
	}
	req.MessageRef = ref

	slog.Info("watchlist request submitted", "request_id", req.ID, "subject", subject, "requester", in.Requester.ID)
	audit.Emit(ctx, s.audit, audit.Event{
		Action:    audit.ActionRequested,
		ActorID:   in.Requester.ID,
		Actor:     req.Requester,
		Subject:   subject,
		Reason:    reason,
		RequestID: req.ID,
	})
	return req, nil
}

// discard removes a request that failed to submit along with its message.
func (s *Service) discard(ctx context.Context, id, ref string) {
	if ref != "" {
		if err := s.notifier.Delete(ctx, s.cfg.RequestChannelID, ref); err != nil {
			slog.Error("approval request message cleanup failed", "request_id", id, "message_ref", ref, "error", err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		slog.Error("approval request cleanup failed", "request_id", id, "error", err)
	}
}

// Approve accepts an open request and lists its subject. Only one decision
// per request succeeds; later ones get ErrAlreadyDecided. If the add fails the
// request is reopened.
func (s *Service) Approve(ctx context.Context, id string, reviewer policy.Actor) (req Request, err error) {
	defer func() { s.metrics.Decision(DecisionAccept, err) }()

	req, err = s.claim(ctx, id, StatusApproved, reviewer)
	if err != nil {
		return Request{}, err
	}

	_, err = s.watchlist.Add(ctx, watchlist.AddInput{
		Subject:   req.SubjectKey,
		Reason:    req.Reason,
		Actor:     reviewer,
		Requester: req.Requester,
		Via:       watchlist.ViaRequest,
	})
	if err != nil {
		if _, revertErr := s.store.Transition(ctx, req.ID, StatusApproved, StatusOpen, "", time.Time{}); revertErr != nil {
			slog.Error("approval request reopen failed", "request_id", req.ID, "error", revertErr)
		}
		return Request{}, err
	}

	s.editDecision(ctx, req, true)
	slog.Info("watchlist request approved", "request_id", req.ID, "subject", req.SubjectKey, "reviewer", reviewer.ID)
	audit.Emit(ctx, s.audit, audit.Event{
		Action:    audit.ActionApproved,
		ActorID:   reviewer.ID,
		Actor:     reviewer.Label(),
		Subject:   req.SubjectKey,
		Reason:    req.Reason,
		RequestID: req.ID,
		Requester: req.Requester,
	})
	return req, nil
}

// Deny closes an open request without listing anything.
func (s *Service) Deny(ctx context.Context, id string, reviewer policy.Actor) (req Request, err error) {
	defer func() { s.metrics.Decision(DecisionDeny, err) }()

	req, err = s.claim(ctx, id, StatusDenied, reviewer)
	if err != nil {
		return Request{}, err
	}

	s.editDecision(ctx, req, false)
	slog.Info("watchlist request denied", "request_id", req.ID, "subject", req.SubjectKey, "reviewer", reviewer.ID)
	audit.Emit(ctx, s.audit, audit.Event{
		Action:    audit.ActionDenied,
		ActorID:   reviewer.ID,
		Actor:     reviewer.Label(),
		Subject:   req.SubjectKey,
		Reason:    req.Reason,
		RequestID: req.ID,
		Requester: req.Requester,
	})
	return req, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// ListOpen returns undecided requests, oldest first.
func (s *Service) ListOpen(ctx context.Context) ([]Request, error) {
	return s.store.List(ctx, Query{Status: StatusOpen})
}

// List returns requests filtered by query.
func (s *Service) List(ctx context.Context, query Query) ([]Request, error) {
	return s.store.List(ctx, query)
}

// claim moves an open request to status for reviewer.
func (s *Service) claim(ctx context.Context, id string, status RequestStatus, reviewer policy.Actor) (Request, error) {
	if err := s.authorize(policy.OpReview, reviewer); err != nil {
		return Request{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Request{}, fmt.Errorf("%w: empty id", ErrRequestNotFound)
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusOpen {
		return Request{}, fmt.Errorf("%w: %s is %s", ErrAlreadyDecided, id, req.Status)
	}

	now := s.now().UTC()
	won, err := s.store.Transition(ctx, id, StatusOpen, status, reviewer.Label(), now)
	if err != nil {
		return Request{}, err
	}
	if !won {
		return Request{}, fmt.Errorf("%w: %s", ErrAlreadyDecided, id)
	}
	req.Status = status
	req.DecidedBy = reviewer.Label()
	req.DecidedAt = now
	return req, nil
}

// editDecision rewrites the request message and drops its controls.
func (s *Service) editDecision(ctx context.Context, req Request, approved bool) {
	if req.MessageRef == "" || s.cfg.RequestChannelID == "" {
		return
	}
	if err := s.notifier.Edit(ctx, s.cfg.RequestChannelID, req.MessageRef, decisionMessage(req, approved)); err != nil {
		slog.Warn("approval request message edit failed", "request_id", req.ID, "error", err)
	}
}

func (s *Service) authorize(op policy.Operation, actor policy.Actor) error {
	if s.authz == nil {
		return nil
	}
	return s.authz.Authorize(op, actor)
}
