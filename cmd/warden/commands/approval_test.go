package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/notify/notifytest"
	"github.com/MEKXH/warden/internal/policy"
)

func TestApprovalList(t *testing.T) {
	useTempHome(t)

	cfg := config.DefaultConfig()
	cfg.Discord.WatchlistChannelID = "kos-channel"
	cfg.Discord.RequestChannelID = "request-channel"
	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	a, err := newApp(cfg, notifytest.New(), nil)
	if err != nil {
		t.Fatalf("newApp error: %v", err)
	}
	ctx := context.Background()
	requester := policy.System("alice")
	first, err := a.approvals.Submit(ctx, approval.SubmitInput{Subject: "Steve", Reason: "griefing", Requester: requester})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := a.approvals.Submit(ctx, approval.SubmitInput{Subject: "Alex", Reason: "spam", Requester: requester}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := a.approvals.Deny(ctx, first.ID, policy.System("mod")); err != nil {
		t.Fatalf("Deny error: %v", err)
	}
	_ = a.Close()

	root := NewRootCmd()
	root.SetArgs([]string{"approval", "list"})
	output := captureOutput(t, func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("approval list error: %v", err)
		}
	})
	if strings.Contains(output, "Steve") || !strings.Contains(output, "Alex") {
		t.Fatalf("expected only open requests, got: %s", output)
	}

	root = NewRootCmd()
	root.SetArgs([]string{"approval", "list", "--status", "all"})
	output = captureOutput(t, func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("approval list --status all error: %v", err)
		}
	})
	if !strings.Contains(output, "Steve") || !strings.Contains(output, "denied") {
		t.Fatalf("expected denied request listed, got: %s", output)
	}

	root = NewRootCmd()
	root.SetArgs([]string{"approval", "list", "--status", "maybe"})
	root.SetErr(&strings.Builder{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected invalid status error")
	}
}
