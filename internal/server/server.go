// Package server exposes a browser over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/artic-select/pkg/browser"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/metrics"
	"github.com/Sternrassler/artic-select/pkg/pagination"
)

// requestTimeout bounds a single navigation or bulk selection.
const requestTimeout = 30 * time.Second

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins lists CORS origins. Empty allows none.
	AllowedOrigins []string

	// Redis, when set, is pinged by /ready.
	Redis *redis.Client
}

// Server serves one browser.
type Server struct {
	browser *browser.Browser
	opts    Options
	logger  zerolog.Logger
}

// New creates a server for b.
func New(b *browser.Browser, opts Options) *Server {
	return &Server{
		browser: b,
		opts:    opts,
		logger:  logging.NewLogger("server"),
	}
}

// Router returns the routes without CORS handling.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/view", s.viewHandler).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.refreshHandler).Methods(http.MethodPost)

	// Literal routes first so "next" and "prev" never reach {n}.
	api.HandleFunc("/page/next", s.nextHandler).Methods(http.MethodPost)
	api.HandleFunc("/page/prev", s.prevHandler).Methods(http.MethodPost)
	api.HandleFunc("/page/{n:[0-9]+}", s.pageHandler).Methods(http.MethodPost)

	api.HandleFunc("/selection", s.selectionHandler).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.setPageSelectionHandler).Methods(http.MethodPut)
	api.HandleFunc("/selection", s.clearSelectionHandler).Methods(http.MethodDelete)
	api.HandleFunc("/selection/bulk", s.bulkHandler).Methods(http.MethodPost)
	api.HandleFunc("/selection/{id:[0-9]+}/toggle", s.toggleHandler).Methods(http.MethodPost)

	return r
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.Router())
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed: redis unavailable")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) viewHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browser.View())
}

func (s *Server) selectionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browser.Selection())
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	s.navigate(w, r, func(ctx context.Context) error { return s.browser.GoToPage(ctx, n) })
}

func (s *Server) nextHandler(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.browser.Next)
}

func (s *Server) prevHandler(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.browser.Prev)
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.browser.Refresh)
}

// navigate runs op and answers with the resulting view. Upstream failures
// are reported as 502 alongside the view, which still shows the prior page.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, op func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := op(ctx); err != nil {
		writeJSON(w, http.StatusBadGateway, errorView{Error: err.Error(), View: s.browser.View()})
		return
	}
	writeJSON(w, http.StatusOK, s.browser.View())
}

func (s *Server) toggleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	selected, err := s.browser.Toggle(id)
	if err != nil {
		if errors.Is(err, browser.ErrNotOnPage) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "selected": selected})
}

type pageSelectionRequest struct {
	IDs []int `json:"ids"`
}

func (s *Server) setPageSelectionHandler(w http.ResponseWriter, r *http.Request) {
	var req pageSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.browser.SetPageSelection(req.IDs)
	writeJSON(w, http.StatusOK, s.browser.View())
}

func (s *Server) clearSelectionHandler(w http.ResponseWriter, _ *http.Request) {
	s.browser.ClearSelection()
	writeJSON(w, http.StatusOK, s.browser.View())
}

// bulkRequest carries the requested count as a JSON number or string.
type bulkRequest struct {
	Count json.RawMessage `json:"count"`
}

func (s *Server) bulkHandler(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	count := countFromJSON(req.Count)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.browser.SelectFirst(ctx, count); err != nil {
		writeJSON(w, http.StatusBadGateway, errorView{Error: err.Error(), View: s.browser.View()})
		return
	}
	writeJSON(w, http.StatusOK, s.browser.View())
}

// countFromJSON reads a count that may be a number, a numeric string or
// anything else; the latter becomes 0.
func countFromJSON(raw json.RawMessage) int {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return pagination.ParseTargetCount(str)
	}
	return pagination.ParseTargetCount(string(raw))
}

type errorView struct {
	Error string       `json:"error"`
	View  browser.View `json:"view"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.NewLogger("server")
		logger.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
