package httpapi

// httpapi expone el estado del bot por HTTP: snapshot del portfolio,
// trends en seguimiento, control start/stop y el endpoint de Prometheus.
// Solo lectura salvo /api/bot/*; el bot no acepta órdenes de trading por API.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alejandrodnm/polytrend/internal/engine"
	"github.com/alejandrodnm/polytrend/internal/metrics"
	"github.com/alejandrodnm/polytrend/internal/portfolio"
	"github.com/alejandrodnm/polytrend/internal/trend"
)

// Server monta el router de la API sobre el engine y el portfolio.
type Server struct {
	engine *engine.Engine
	pf     *portfolio.Portfolio
	trends *trend.Tracker

	// startBot arranca el engine con el contexto de vida del proceso,
	// que es de main y no de la request.
	startBot func()
}

// NewServer crea el Server. startBot debe arrancar el engine con el
// contexto raíz del proceso.
func NewServer(eng *engine.Engine, pf *portfolio.Portfolio, trends *trend.Tracker, startBot func()) *Server {
	return &Server{engine: eng, pf: pf, trends: trends, startBot: startBot}
}

// Router construye el chi.Router con todas las rutas montadas.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/trends", s.handleTrends)
		r.Post("/bot/start", s.handleStart)
		r.Post("/bot/stop", s.handleStop)
	})

	return r
}

// statusResponse combina el estado de los workers con el snapshot del
// portfolio.
type statusResponse struct {
	Engine    engine.Status      `json:"engine"`
	Portfolio portfolio.Snapshot `json:"portfolio"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.pf.Lock()
	snap := s.pf.Snapshot()
	s.pf.Unlock()

	writeJSON(w, http.StatusOK, statusResponse{
		Engine:    s.engine.EngineStatus(),
		Portfolio: snap,
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trends.SnapshotAll())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.engine.Running() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already running"})
		return
	}
	s.startBot()
	slog.Info("bot started via API")
	writeJSON(w, http.StatusOK, s.engine.EngineStatus())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Running() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not running"})
		return
	}
	s.engine.Stop()
	slog.Info("bot stopped via API")
	writeJSON(w, http.StatusOK, s.engine.EngineStatus())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpapi: encode response", "err", err)
	}
}
