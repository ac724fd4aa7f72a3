package watchlist

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyLocks_SerializesSameKey(t *testing.T) {
	locks := newKeyLocks()
	release, err := locks.acquire(context.Background(), "steve")
	if err != nil {
		t.Fatalf("acquire error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.acquire(ctx, "steve"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while held, got %v", err)
	}

	other, err := locks.acquire(context.Background(), "alex")
	if err != nil {
		t.Fatalf("acquire other key error: %v", err)
	}
	other()

	release()
	release()
	if n := locks.size(); n != 0 {
		t.Fatalf("expected lock table to be empty, got %d", n)
	}
}
