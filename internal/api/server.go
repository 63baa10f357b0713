package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"livepoll/pkg/types"
)

// Queries is the read-only surface the coordinator exposes. Every call runs
// through the coordinator's serialization point, so REST readers see the
// same consistent snapshots as WebSocket clients.
type Queries interface {
	Results() (types.ResultsSnapshot, error)
	Participants() ([]types.ParticipantInfo, error)
	History() ([]*types.HistoryRecord, error)
}

// Stats reports transport-level counters for the health endpoint.
type Stats interface {
	Count() int
}

// Server is the HTTP read mirror: no business logic, only JSON serialization
// over coordinator queries.
type Server struct {
	queries Queries
	stats   Stats
	logger  *zap.Logger
	router  *http.ServeMux
}

// NewServer creates the API server and wires its routes.
func NewServer(queries Queries, stats Stats, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queries: queries,
		stats:   stats,
		logger:  logger,
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/history", s.corsMiddleware(http.HandlerFunc(s.handleHistory)))
	s.router.Handle("/api/participants", s.corsMiddleware(http.HandlerFunc(s.handleParticipants)))
	s.router.Handle("/api/results", s.corsMiddleware(http.HandlerFunc(s.handleResults)))
	s.router.Handle("/health", s.corsMiddleware(http.HandlerFunc(s.healthCheck)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	records, err := s.queries.History()
	if err != nil {
		s.sendError(w, "Poll history unavailable", http.StatusServiceUnavailable)
		return
	}
	if records == nil {
		records = []*types.HistoryRecord{}
	}
	s.sendJSON(w, map[string]interface{}{"history": records}, http.StatusOK)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	participants, err := s.queries.Participants()
	if err != nil {
		s.sendError(w, "Participants unavailable", http.StatusServiceUnavailable)
		return
	}
	if participants == nil {
		participants = []types.ParticipantInfo{}
	}
	s.sendJSON(w, types.ParticipantsUpdatePayload{Participants: participants}, http.StatusOK)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	snapshot, err := s.queries.Results()
	if err != nil {
		s.sendError(w, "Results unavailable", http.StatusServiceUnavailable)
		return
	}
	s.sendJSON(w, snapshot, http.StatusOK)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	s.sendJSON(w, map[string]interface{}{
		"status":      "healthy",
		"connections": s.stats.Count(),
	}, http.StatusOK)
}

func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodGet:
		return true
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return false
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, map[string]string{"error": message}, status)
}
