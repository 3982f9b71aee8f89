// Package httpapi exposes the websocket endpoint, read-only session views and
// operational endpoints over one chi router.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/castle-blotto/internal/archive"
	"github.com/park285/castle-blotto/internal/blotto"
	"github.com/park285/castle-blotto/internal/service/tournament"
	"go.uber.org/zap"
)

//go:embed static
var staticFiles embed.FS

// Service is the read side of the tournament service.
type Service interface {
	Snapshot() blotto.Snapshot
	CrossTablePNG(ctx context.Context) ([]byte, error)
	RecentSessions(ctx context.Context, limit int) ([]*archive.Record, error)
	Session(ctx context.Context, sessionID string) (*archive.Record, error)
	Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error)
}

type Options struct {
	AllowedOrigins []string
	HistoryLimit   int
	Metrics        http.Handler
	Logger         *zap.Logger
}

type handler struct {
	svc    Service
	limit  int
	logger *zap.Logger
}

// NewRouter mounts ws at /ws next to the JSON API.
func NewRouter(svc Service, ws http.Handler, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	h := &handler{svc: svc, limit: opts.HistoryLimit, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(opts.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if ws != nil {
		r.Handle("/ws", ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware(opts.AllowedOrigins))
		r.Get("/standings", h.standings)
		r.Get("/crosstable.png", h.crossTable)
		r.Get("/sessions", h.sessions)
		r.Get("/sessions/{sessionID}", h.session)
		r.Get("/sessions/{sessionID}/rounds", h.rounds)
	})

	static, _ := fs.Sub(staticFiles, "static")
	r.Handle("/*", http.FileServer(http.FS(static)))
	return r
}

func (h *handler) standings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *handler) crossTable(w http.ResponseWriter, r *http.Request) {
	png, err := h.svc.CrossTablePNG(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "render failed", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	limit := h.limit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := h.svc.RecentSessions(r.Context(), limit)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load sessions", err)
		return
	}
	if recs == nil {
		recs = []*archive.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if errors.Is(err, archive.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) rounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.svc.Rounds(r.Context(), chi.URLParam(r, "sessionID"))
	if errors.Is(err, tournament.ErrHistoryUnavailable) {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "failed to load rounds", err)
		return
	}
	if rounds == nil {
		rounds = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	h.logger.Warn("http_request_failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
