// Package http serves the operational endpoints: health, metrics, and a
// read-only view of the session registry.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/data/cache"
	"github.com/sawpanic/launchradar/internal/scan"
)

// Server exposes read-only pipeline state over HTTP. It never mutates the
// registry; everything it serves is a snapshot copy.
type Server struct {
	registry *scan.Registry
	cache    *cache.Cache
	startAt  time.Time
	srv      *http.Server
}

// NewServer builds the server on the given listen address.
func NewServer(listen string, registry *scan.Registry, c *cache.Cache) *Server {
	s := &Server{
		registry: registry,
		cache:    c,
		startAt:  time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/candidates", s.handleCandidates).Methods(http.MethodGet)
	r.HandleFunc("/candidates/{mint}", s.handleCandidate).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         listen,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("listen", s.srv.Addr).Msg("HTTP interface listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

type healthResponse struct {
	Status        string      `json:"status"`
	UptimeSecs    float64     `json:"uptime_secs"`
	TrackedTokens int         `json:"tracked_tokens"`
	Cache         cache.Stats `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSecs:    time.Since(s.startAt).Seconds(),
		TrackedTokens: s.registry.Len(),
	}
	if s.cache != nil {
		resp.Cache = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

type candidateView struct {
	Mint      string    `json:"mint"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Stage     string    `json:"stage"`
	Platforms []string  `json:"platforms"`
	BestScore float64   `json:"best_score"`
	BestAt    time.Time `json:"best_at,omitempty"`
	Cycles    int       `json:"cycles"`
}

func (s *Server) handleCandidates(w http.ResponseWriter, _ *http.Request) {
	snap := s.registry.Snapshot()
	views := make([]candidateView, 0, len(snap))
	for mint, entry := range snap {
		views = append(views, candidateView{
			Mint:      mint,
			Symbol:    entry.Candidate.Symbol,
			Name:      entry.Candidate.Name,
			Stage:     entry.Candidate.Stage.String(),
			Platforms: entry.Candidate.PlatformList(),
			BestScore: entry.BestScore,
			BestAt:    entry.BestAt,
			Cycles:    entry.Cycles,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].BestScore > views[j].BestScore })
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	mint := mux.Vars(r)["mint"]
	snap := s.registry.Snapshot()
	entry, ok := snap[mint]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown mint"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Response encode failed")
	}
}
