package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/MEKXH/warden/internal/notify"
)

// ChannelSink posts audit events to a moderation log channel.
type ChannelSink struct {
	notifier  notify.Notifier
	channelID string
}

// NewChannelSink returns a sink posting to channelID. An empty channel id
// disables the sink.
func NewChannelSink(notifier notify.Notifier, channelID string) *ChannelSink {
	return &ChannelSink{notifier: notifier, channelID: strings.TrimSpace(channelID)}
}

func (s *ChannelSink) Record(ctx context.Context, event Event) error {
	if s == nil || s.notifier == nil || s.channelID == "" {
		return nil
	}
	if _, err := s.notifier.Post(ctx, s.channelID, Format(event)); err != nil {
		return fmt.Errorf("post audit event: %w", err)
	}
	return nil
}

// Format renders an event as a mod-log notice.
func Format(event Event) notify.Message {
	msg := notify.Message{
		Timestamp: event.Time,
		Color:     notify.ColorBlurple,
	}
	actor := event.Actor
	if actor == "" {
		actor = event.ActorID
	}

	switch event.Action {
	case ActionAdded:
		msg.Title = "KOS Added"
		msg.Color = notify.ColorRed
		msg.Description = fmt.Sprintf("%s added **%s** for: %s", actor, event.Subject, event.Reason)
	case ActionReplaced:
		msg.Title = "KOS Replaced"
		msg.Color = notify.ColorRed
		msg.Description = fmt.Sprintf("%s replaced **%s** with reason: %s", actor, event.Subject, event.Reason)
	case ActionRemoved:
		msg.Title = "KOS Removed"
		msg.Color = notify.ColorGreen
		msg.Description = fmt.Sprintf("%s removed **%s**", actor, event.Subject)
	case ActionRequested:
		msg.Title = "KOS Request Submitted"
		msg.Color = notify.ColorOrange
		msg.Description = fmt.Sprintf("%s requested KOS for **%s**", actor, event.Subject)
	case ActionApproved:
		msg.Title = "KOS Approved"
		msg.Color = notify.ColorRed
		msg.Description = fmt.Sprintf("%s approved **%s** (requested by %s)", actor, event.Subject, event.Requester)
	case ActionDenied:
		msg.Title = "KOS Denied"
		msg.Color = notify.ColorGrey
		msg.Description = fmt.Sprintf("%s denied KOS for **%s**", actor, event.Subject)
	case ActionRefreshed:
		msg.Title = "KOS Refreshed"
		msg.Description = fmt.Sprintf("%s refreshed the KOS list: %s", actor, event.Detail)
	default:
		msg.Title = event.Action
		msg.Description = strings.TrimSpace(fmt.Sprintf("%s %s %s", actor, event.Subject, event.Detail))
	}
	return msg
}
