package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Action kinds written by the watchlist and approval flows.
const (
	ActionAdded     = "watchlist.added"
	ActionReplaced  = "watchlist.replaced"
	ActionRemoved   = "watchlist.removed"
	ActionRequested = "watchlist.requested"
	ActionApproved  = "watchlist.approved"
	ActionDenied    = "watchlist.denied"
	ActionRefreshed = "watchlist.refreshed"
)

// Event is one audit record.
type Event struct {
	Time      time.Time `json:"time"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	// Requester is set on approval decisions.
	Requester string `json:"requester,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Recorder persists or publishes audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Multi fans an event out to every recorder.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, event Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit records event and logs failures; audit problems never fail the caller.
func Emit(ctx context.Context, rec Recorder, event Event) {
	if rec == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if err := rec.Record(ctx, event); err != nil {
		slog.Warn("audit record failed", "action", event.Action, "subject", event.Subject, "error", err)
	}
}
