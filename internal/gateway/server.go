package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/version"
	"github.com/MEKXH/warden/internal/watchlist"
)

// Watchlist is the read and refresh surface exposed over HTTP.
type Watchlist interface {
	Status(ctx context.Context, subject string) (watchlist.Entry, error)
	Refresh(ctx context.Context, actor policy.Actor) (watchlist.RefreshResult, error)
}

// Options configures the HTTP handler.
type Options struct {
	Token     string
	Watchlist Watchlist
	Gatherer  prometheus.Gatherer
}

type Server struct {
	cfg        config.GatewayConfig
	handler    http.Handler
	httpServer *http.Server
}

func New(cfg config.GatewayConfig, opts Options) *Server {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 18790
	}

	cfg.Host = host
	cfg.Port = port
	if opts.Token == "" {
		opts.Token = cfg.Token
	}
	return &Server{
		cfg:     cfg,
		handler: NewHandler(opts),
	}
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("gateway listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func NewHandler(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, getRequestID(r), http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, getRequestID(r), http.StatusNotFound, "not_found", "route not found")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"request_id": getRequestID(r),
		})
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"version":    version.Version,
			"request_id": getRequestID(r),
		})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/watchlist/{subject}", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if opts.Watchlist == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "watchlist is not configured")
			return
		}
		subject := chi.URLParam(r, "subject")
		entry, err := opts.Watchlist.Status(r.Context(), subject)
		if err != nil {
			if errors.Is(err, watchlist.ErrNotListed) || errors.Is(err, watchlist.ErrInvalidInput) {
				writeError(w, requestID, http.StatusNotFound, "not_listed", "subject is not on the watchlist")
				return
			}
			slog.Error("gateway watchlist status failed", "request_id", requestID, "subject", subject, "error", err)
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to read watchlist")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"subject_key": entry.SubjectKey,
			"reason":      entry.Reason,
			"created_at":  entry.CreatedAt,
			"notice_ref":  entry.NoticeRef,
			"request_id":  requestID,
		})
	})

	r.Post("/watchlist/refresh", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if strings.TrimSpace(opts.Token) == "" || !isAuthorized(r, opts.Token) {
			writeError(w, requestID, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		if opts.Watchlist == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "watchlist is not configured")
			return
		}
		res, err := opts.Watchlist.Refresh(r.Context(), policy.System("gateway"))
		if err != nil {
			slog.Error("gateway refresh failed", "request_id", requestID, "error", err)
			status, code := http.StatusInternalServerError, "internal_error"
			if errors.Is(err, notify.ErrNotFound) {
				status, code = http.StatusBadGateway, "notice_channel_missing"
			}
			writeJSON(w, status, map[string]any{
				"code":       code,
				"message":    "refresh did not complete",
				"refreshed":  res.Refreshed,
				"failed":     res.Failed,
				"pruned":     res.Pruned,
				"request_id": requestID,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"refreshed":  res.Refreshed,
			"failed":     res.Failed,
			"pruned":     res.Pruned,
			"request_id": requestID,
		})
	})
	return r
}

func isAuthorized(r *http.Request, expected string) bool {
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	if got == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(got, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(got, prefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func getRequestID(r *http.Request) string {
	rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if rid != "" {
		return rid
	}
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":       code,
		"message":    message,
		"request_id": requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
