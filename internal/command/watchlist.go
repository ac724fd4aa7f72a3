package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/watchlist"
)

// Watchlist is the watchlist surface driven by chat commands.
type Watchlist interface {
	Add(ctx context.Context, in watchlist.AddInput) (watchlist.Entry, error)
	Remove(ctx context.Context, actor policy.Actor, subject string) (watchlist.RemoveResult, error)
	StatusFor(ctx context.Context, actor policy.Actor, subject string) (watchlist.Entry, error)
	Refresh(ctx context.Context, actor policy.Actor) (watchlist.RefreshResult, error)
}

// Requests submits watchlist requests for review.
type Requests interface {
	Submit(ctx context.Context, in approval.SubmitInput) (approval.Request, error)
}

// Option names used by structured invocations.
const (
	OptSubcommand = "subcommand"
	OptSubject    = "username"
	OptReason     = "reason"
	OptAttachment = "attachment"
)

// WatchlistCommand manages the KOS list.
// Subcommands: add <username> <reason>, remove <username>,
// request <username> <reason>, status <username>, refresh
type WatchlistCommand struct {
	Watchlist Watchlist
	Requests  Requests
}

func (c *WatchlistCommand) Name() string { return "watchlist" }
func (c *WatchlistCommand) Description() string {
	return "Manage the KOS list (add|remove|request|status|refresh)"
}

func (c *WatchlistCommand) Execute(ctx context.Context, args string, env Env) Result {
	sub, subject, reason := parseInvocation(args, env)

	switch sub {
	case "add":
		return c.add(ctx, subject, reason, env)
	case "remove", "rm":
		return c.remove(ctx, subject, env)
	case "request":
		return c.request(ctx, subject, reason, env)
	case "status":
		return c.status(ctx, subject, env)
	case "refresh":
		return runRefresh(ctx, c.Watchlist, env)
	default:
		return Result{
			Title:   "Usage",
			Content: fmt.Sprintf("`%swatchlist [add|remove|request|status|refresh] <username> [reason]`", env.Prefix),
			Private: true,
		}
	}
}

func (c *WatchlistCommand) add(ctx context.Context, subject, reason string, env Env) Result {
	entry, err := c.Watchlist.Add(ctx, watchlist.AddInput{
		Subject: subject,
		Reason:  reason,
		Actor:   env.Actor,
		Via:     watchlist.ViaDirect,
	})
	if err != nil {
		return ErrorResult(err, subject)
	}
	return Result{
		Title:   "KOS Added",
		Content: fmt.Sprintf("**%s** has been added to the KOS list.", entry.SubjectKey),
		Color:   notify.ColorRed,
		Private: true,
	}
}

func (c *WatchlistCommand) remove(ctx context.Context, subject string, env Env) Result {
	res, err := c.Watchlist.Remove(ctx, env.Actor, subject)
	if err != nil {
		return ErrorResult(err, subject)
	}
	content := fmt.Sprintf("**%s** has been removed from the KOS list.", res.Entry.SubjectKey)
	if !res.NoticeDeleted {
		content += " The posted notice could not be deleted."
	}
	return Result{Title: "KOS Removed", Content: content, Color: notify.ColorGreen, Private: true}
}

func (c *WatchlistCommand) request(ctx context.Context, subject, reason string, env Env) Result {
	if c.Requests == nil {
		return Result{Title: "Unavailable", Content: "Requests are not enabled.", Private: true}
	}
	attachment := env.Option(OptAttachment)
	if attachment == "" {
		attachment = env.AttachmentURL
	}
	_, err := c.Requests.Submit(ctx, approval.SubmitInput{
		Subject:       subject,
		Reason:        reason,
		Requester:     env.Actor,
		AttachmentURL: attachment,
	})
	if err != nil {
		return ErrorResult(err, subject)
	}
	return Result{
		Title:   "KOS Request Submitted",
		Content: fmt.Sprintf("Your request for **%s** has been sent for review.", subject),
		Color:   notify.ColorOrange,
	}
}

func (c *WatchlistCommand) status(ctx context.Context, subject string, env Env) Result {
	entry, err := c.Watchlist.StatusFor(ctx, env.Actor, subject)
	if err != nil {
		return ErrorResult(err, subject)
	}
	fields := []notify.Field{
		{Name: "Username", Value: entry.SubjectKey, Inline: true},
		{Name: "Reason", Value: entry.Reason, Inline: true},
		{Name: "Date", Value: notify.Timestamp(entry.CreatedAt, 'F')},
	}
	if entry.ApprovedBy != "" {
		fields = append(fields, notify.Field{Name: "Approved By", Value: entry.ApprovedBy, Inline: true})
	}
	return Result{Title: "KOS Status", Color: notify.ColorRed, Fields: fields, Private: true}
}

// RefreshCommand is the legacy admin command that reposts every notice.
type RefreshCommand struct {
	Watchlist Watchlist
}

func (c *RefreshCommand) Name() string        { return "refresh_kos" }
func (c *RefreshCommand) Description() string { return "Repost every KOS notice" }

func (c *RefreshCommand) Execute(ctx context.Context, _ string, env Env) Result {
	return runRefresh(ctx, c.Watchlist, env)
}

// RefreshTimeout bounds a refresh started from chat. It is independent of
// the event that triggered it; a long list takes many rate-limited calls.
var RefreshTimeout = 10 * time.Minute

func runRefresh(ctx context.Context, wl Watchlist, env Env) Result {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RefreshTimeout)
	defer cancel()

	res, err := wl.Refresh(rctx, env.Actor)
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		return ErrorResult(err, "")
	}
	content := fmt.Sprintf("Refreshed %d entries. Failed to delete %d old notices.", res.Refreshed, res.Failed)
	if res.Pruned > 0 {
		content += fmt.Sprintf(" Pruned %d stale reservations.", res.Pruned)
	}
	if interrupted {
		content += " The refresh stopped before reaching every entry; run it again to finish."
		return Result{Title: "KOS Refresh Incomplete", Content: content, Color: notify.ColorOrange, Private: true}
	}
	return Result{Title: "KOS Refreshed", Content: content, Color: notify.ColorGreen, Private: true}
}

// parseInvocation reads the subcommand, subject and reason either from
// structured options or from text of the form "<sub> <subject> <reason...>".
func parseInvocation(args string, env Env) (sub, subject, reason string) {
	if s := env.Option(OptSubcommand); s != "" {
		return strings.ToLower(s), env.Option(OptSubject), env.Option(OptReason)
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", "", ""
	}
	sub = strings.ToLower(fields[0])
	if len(fields) > 1 {
		subject = fields[1]
	}
	if len(fields) > 2 {
		reason = strings.Join(fields[2:], " ")
	}
	return sub, subject, reason
}
