package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.Operation("add", nil)
	rec.Operation("add", nil)
	rec.Operation("add", errors.New("boom"))

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("add", ResultOK)); got != 2 {
		t.Fatalf("expected 2 ok adds, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("add", ResultError)); got != 1 {
		t.Fatalf("expected 1 failed add, got %v", got)
	}
}

func TestRecorder_RefreshAndDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.RefreshEntry("refreshed", 3)
	rec.RefreshEntry("failed", 0)
	rec.NoticeDeleteFailed()
	rec.Decision("approve", nil)

	if got := testutil.ToFloat64(rec.refreshEntries.WithLabelValues("refreshed")); got != 3 {
		t.Fatalf("expected 3 refreshed, got %v", got)
	}
	if got := testutil.ToFloat64(rec.noticeDeleteFailures); got != 1 {
		t.Fatalf("expected 1 delete failure, got %v", got)
	}
	if got := testutil.ToFloat64(rec.decisions.WithLabelValues("approve", ResultOK)); got != 1 {
		t.Fatalf("expected 1 approve, got %v", got)
	}

	count, err := testutil.GatherAndCount(reg, "warden_watchlist_refresh_entries_total")
	if err != nil {
		t.Fatalf("GatherAndCount error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 refresh series, got %d", count)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Operation("add", nil)
	rec.NoticeDeleteFailed()
	rec.RefreshEntry("refreshed", 1)
	rec.Decision("deny", nil)
}

func TestNew_NilRegistry(t *testing.T) {
	rec := New(nil)
	rec.Operation("remove", nil)
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("remove", ResultOK)); got != 1 {
		t.Fatalf("expected 1 remove, got %v", got)
	}
}
