package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds the watchlist and approval counters. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	operations           *prometheus.CounterVec
	noticeDeleteFailures prometheus.Counter
	refreshEntries       *prometheus.CounterVec
	decisions            *prometheus.CounterVec
}

// New creates the collectors and registers them with registry. A nil
// registry leaves them unregistered.
func New(registry prometheus.Registerer) *Recorder {
	factory := promauto.With(registry)
	return &Recorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_watchlist_operations_total",
			Help: "Total number of watchlist operations by kind and result",
		}, []string{"op", "result"}),
		noticeDeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_watchlist_notice_delete_failures_total",
			Help: "Total number of public notices that could not be deleted",
		}),
		refreshEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_watchlist_refresh_entries_total",
			Help: "Total number of entries handled by refresh passes by result",
		}, []string{"result"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_approval_decisions_total",
			Help: "Total number of approval decisions by decision and result",
		}, []string{"decision", "result"}),
	}
}

// Operation counts one watchlist operation.
func (r *Recorder) Operation(op string, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result(err)).Inc()
}

// NoticeDeleteFailed counts a failed best-effort notice deletion.
func (r *Recorder) NoticeDeleteFailed() {
	if r == nil {
		return
	}
	r.noticeDeleteFailures.Inc()
}

// RefreshEntry counts one entry processed by a refresh pass.
// result is one of "refreshed", "failed" or "pruned".
func (r *Recorder) RefreshEntry(result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.refreshEntries.WithLabelValues(result).Add(float64(n))
}

// Decision counts an approve or deny attempt.
func (r *Recorder) Decision(decision string, err error) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(decision, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
