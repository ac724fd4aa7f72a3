package watchlist

import (
	"net/url"
	"strings"
	"time"

	"github.com/MEKXH/warden/internal/notify"
)

// DefaultAvatarURLTemplate renders a subject's head as the notice thumbnail.
const DefaultAvatarURLTemplate = "https://mineskin.eu/helm/{subject}/100.png"

// Notice composes the public notice for entry.
func Notice(entry Entry, avatarTemplate string) notify.Message {
	msg := notify.Message{
		Title: "⚔️ KOS Notice",
		Color: notify.ColorRed,
		Fields: []notify.Field{
			{Name: "Username", Value: entry.SubjectKey, Inline: true},
			{Name: "Reason", Value: entry.Reason, Inline: true},
			{Name: "Date", Value: notify.Timestamp(entry.CreatedAt, 'F'), Inline: false},
		},
		Timestamp: time.Unix(entry.CreatedAt, 0).UTC(),
	}
	if entry.ApprovedBy != "" {
		msg.Fields = append(msg.Fields,
			notify.Field{Name: "Requested By", Value: entry.AddedBy, Inline: true},
			notify.Field{Name: "Approved By", Value: entry.ApprovedBy, Inline: true},
		)
	}
	if avatarTemplate != "" {
		msg.ThumbnailURL = strings.ReplaceAll(avatarTemplate, "{subject}", url.PathEscape(entry.SubjectKey))
	}
	return msg
}
