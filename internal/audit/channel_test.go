package audit

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/notify/notifytest"
)

func TestChannelSink_PostsFormattedEvent(t *testing.T) {
	mem := notifytest.New()
	sink := NewChannelSink(mem, "modlog")

	err := sink.Record(context.Background(), Event{
		Time:      time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC),
		Action:    ActionApproved,
		Actor:     "<@2>",
		Subject:   "Steve",
		Requester: "<@1>",
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	posted := mem.InChannel("modlog")
	if len(posted) != 1 {
		t.Fatalf("expected 1 mod-log message, got %d", len(posted))
	}
	msg := posted[0].Message
	if msg.Title != "KOS Approved" {
		t.Fatalf("unexpected title %q", msg.Title)
	}
	if !strings.Contains(msg.Description, "requested by <@1>") {
		t.Fatalf("expected requester in description, got %q", msg.Description)
	}
}

func TestChannelSink_EmptyChannelIsDisabled(t *testing.T) {
	mem := notifytest.New()
	sink := NewChannelSink(mem, "  ")
	if err := sink.Record(context.Background(), Event{Action: ActionAdded}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if mem.Posts != 0 {
		t.Fatalf("expected no posts, got %d", mem.Posts)
	}
}

func TestFormat_ColorsByAction(t *testing.T) {
	cases := map[string]notify.Color{
		ActionAdded:     notify.ColorRed,
		ActionRemoved:   notify.ColorGreen,
		ActionRequested: notify.ColorOrange,
		ActionDenied:    notify.ColorGrey,
		ActionRefreshed: notify.ColorBlurple,
	}
	for action, want := range cases {
		if got := Format(Event{Action: action}).Color; got != want {
			t.Fatalf("action %s: expected color %x, got %x", action, want, got)
		}
	}
}

type failingRecorder struct{ err error }

func (f failingRecorder) Record(context.Context, Event) error { return f.err }

func TestMulti_RecordsEverywhereAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	writer := NewWriter(t.TempDir())
	multi := Multi{failingRecorder{err: boom}, nil, writer}

	err := multi.Record(context.Background(), Event{Time: time.Now().UTC(), Action: ActionAdded, Subject: "Steve"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom error, got %v", err)
	}
	if _, statErr := readLines(writer.Path()); statErr != nil {
		t.Fatalf("expected writer to still record: %v", statErr)
	}
}

func TestEmit_SwallowsErrors(t *testing.T) {
	Emit(context.Background(), failingRecorder{err: errors.New("down")}, Event{Action: ActionAdded})
	Emit(context.Background(), nil, Event{Action: ActionAdded})
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n"), nil
}
