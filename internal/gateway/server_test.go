package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/metrics"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/version"
	"github.com/MEKXH/warden/internal/watchlist"
)

type mockWatchlist struct {
	entries   map[string]watchlist.Entry
	result    watchlist.RefreshResult
	err       error
	refresher policy.Actor
}

func (m *mockWatchlist) Status(_ context.Context, subject string) (watchlist.Entry, error) {
	if m.err != nil {
		return watchlist.Entry{}, m.err
	}
	e, ok := m.entries[watchlist.Fold(subject)]
	if !ok {
		return watchlist.Entry{}, watchlist.ErrNotListed
	}
	return e, nil
}

func (m *mockWatchlist) Refresh(_ context.Context, actor policy.Actor) (watchlist.RefreshResult, error) {
	m.refresher = actor
	return m.result, m.err
}

func decodeJSON(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(Options{})
	rr := serve(h, http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
	if body["request_id"] == "" {
		t.Fatal("expected non-empty request_id")
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := NewHandler(Options{})
	rr := serve(h, http.MethodGet, "/version", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["version"] != version.Version {
		t.Fatalf("expected version=%s, got %v", version.Version, body["version"])
	}
}

func TestHealthRejectsPost(t *testing.T) {
	rr := serve(NewHandler(Options{}), http.MethodPost, "/health", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestWatchlistStatusEndpoint(t *testing.T) {
	wl := &mockWatchlist{entries: map[string]watchlist.Entry{
		"steve": {SubjectKey: "Steve", Reason: "griefing", CreatedAt: 1700000000, NoticeRef: "m1"},
	}}
	h := NewHandler(Options{Watchlist: wl})

	rr := serve(h, http.MethodGet, "/watchlist/STEVE", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["subject_key"] != "Steve" || body["reason"] != "griefing" || body["notice_ref"] != "m1" {
		t.Fatalf("unexpected body: %v", body)
	}

	rr = serve(h, http.MethodGet, "/watchlist/alex", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	wl.err = errors.New("db locked")
	rr = serve(h, http.MethodGet, "/watchlist/steve", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	wl := &mockWatchlist{}
	h := NewHandler(Options{Token: "secret", Watchlist: wl})

	if rr := serve(h, http.MethodPost, "/watchlist/refresh", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if rr := serve(h, http.MethodPost, "/watchlist/refresh", "wrong"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if rr := serve(NewHandler(Options{Watchlist: wl}), http.MethodPost, "/watchlist/refresh", "anything"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected refresh to be disabled without a token, got %d", rr.Code)
	}
}

func TestRefreshSuccess(t *testing.T) {
	wl := &mockWatchlist{result: watchlist.RefreshResult{Refreshed: 2, Failed: 1}}
	h := NewHandler(Options{Token: "secret", Watchlist: wl})

	rr := serve(h, http.MethodPost, "/watchlist/refresh", "secret")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["refreshed"] != float64(2) || body["failed"] != float64(1) {
		t.Fatalf("unexpected body: %v", body)
	}
	if wl.refresher.ID != "gateway" || !wl.refresher.Administrator {
		t.Fatalf("unexpected refresh actor: %+v", wl.refresher)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	rec.Operation("add", nil)

	rr := serve(NewHandler(Options{Gatherer: reg}), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `warden_watchlist_operations_total{op="add",result="ok"} 1`) {
		t.Fatalf("expected operation counter in output, got %s", rr.Body.String())
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(config.GatewayConfig{}, Options{})
	if s.Addr() != "127.0.0.1:18790" {
		t.Fatalf("unexpected addr %q", s.Addr())
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown before start error: %v", err)
	}
}

func TestIsAuthorized(t *testing.T) {
	cases := []struct {
		header string
		want   bool
	}{
		{"Bearer secret", true},
		{"Bearer  secret ", true},
		{"Bearer secre", false},
		{"Bearer secret2", false},
		{"Basic secret", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/watchlist/refresh", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		if got := isAuthorized(req, "secret"); got != c.want {
			t.Fatalf("isAuthorized(%q) = %v, want %v", c.header, got, c.want)
		}
	}
}
