// Package httpstats exposes a Pool's statistics view over HTTP: a
// read-only, introspection-only surface, never a control plane (no
// endpoint can pin, unpin, or evict a page).
package httpstats

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coredb/bufferpool"
)

// Server serves a Pool's stats over HTTP.
type Server struct {
	pool   *bufferpool.Pool
	router *chi.Mux
	http   *http.Server
}

// New builds a Server bound to addr, reporting on pool.
func New(pool *bufferpool.Pool, addr string) *Server {
	s := &Server{pool: pool, router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)

	s.router.Get("/stats", s.handleStats)
	s.router.Get("/stats/frames", s.handleFrames)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving the stats endpoints until the server is
// shut down or ListenAndServe itself fails.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown stops the server without interrupting in-flight requests past
// the given deadline, per http.Server.Shutdown semantics.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type poolStats struct {
	Strategy   string `json:"strategy"`
	NumFrames  int    `json:"num_frames"`
	NumReadIO  int64  `json:"num_read_io"`
	NumWriteIO int64  `json:"num_write_io"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := poolStats{
		Strategy:   s.pool.Strategy().String(),
		NumFrames:  s.pool.NumFrames(),
		NumReadIO:  s.pool.NumReadIO(),
		NumWriteIO: s.pool.NumWriteIO(),
	}
	writeJSON(w, stats)
}

type frameStats struct {
	Slot     int            `json:"slot"`
	PageNo   bufferpool.PageNo `json:"page_no"`
	Dirty    bool           `json:"dirty"`
	FixCount int            `json:"fix_count"`
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	pages := s.pool.FrameContents()
	dirty := s.pool.DirtyFlags()
	fixCounts := s.pool.FixCounts()

	out := make([]frameStats, len(pages))
	for i := range pages {
		out[i] = frameStats{Slot: i, PageNo: pages[i], Dirty: dirty[i], FixCount: fixCounts[i]}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
