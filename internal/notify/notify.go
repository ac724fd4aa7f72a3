package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when the target channel or message does not exist.
var ErrNotFound = errors.New("notify: target not found")

// Color is an RGB embed accent.
type Color int

const (
	ColorRed     Color = 0xE74C3C
	ColorGreen   Color = 0x2ECC71
	ColorOrange  Color = 0xE67E22
	ColorGrey    Color = 0x607D8B
	ColorBlurple Color = 0x5865F2
)

// ButtonStyle selects how a decision control is rendered.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSuccess
	ButtonDanger
)

// Field is one labelled value of a notice.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Button is an interactive control attached to a posted message.
type Button struct {
	ID    string
	Label string
	Style ButtonStyle
}

// Message is a platform-neutral rich message.
type Message struct {
	Title        string
	Description  string
	Color        Color
	Fields       []Field
	ImageURL     string
	ThumbnailURL string
	Timestamp    time.Time
	Buttons      []Button
}

// Notifier posts, edits and deletes messages in a platform channel.
type Notifier interface {
	// Post sends msg to channelID and returns the new message id.
	Post(ctx context.Context, channelID string, msg Message) (string, error)
	// Edit replaces the content of an existing message. Buttons not present
	// in msg are removed.
	Edit(ctx context.Context, channelID, messageID string, msg Message) error
	// Delete removes a message. Missing messages yield ErrNotFound.
	Delete(ctx context.Context, channelID, messageID string) error
}

// Timestamp renders unix seconds as a client-localized timestamp token.
// Style is one of the Discord format letters (F, R, d, t ...).
func Timestamp(unix int64, style byte) string {
	return fmt.Sprintf("<t:%d:%c>", unix, style)
}
