// Package httpapi exposes the forensic case and analysis pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/veriscope/veriscope/internal/auth"
	"github.com/veriscope/veriscope/internal/logging"
)

type Server struct {
	caseAPI        *CaseAPI
	mediaAPI       *MediaAPI
	analysisAPI    *AnalysisAPI
	authMiddleware *auth.Middleware
	logger         *logging.Logger
	server         *http.Server
}

func New(caseAPI *CaseAPI, mediaAPI *MediaAPI, analysisAPI *AnalysisAPI, authMiddleware *auth.Middleware, logger *logging.Logger) *Server {
	return &Server{
		caseAPI:        caseAPI,
		mediaAPI:       mediaAPI,
		analysisAPI:    analysisAPI,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analyses run synchronously
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

// registerRoutes wires every handler onto mux. Split out so tests can mount
// the API without a listening socket.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	if s.caseAPI != nil {
		s.caseAPI.RegisterRoutes(mux, s.corsMiddleware)
	}
	if s.mediaAPI != nil {
		s.mediaAPI.RegisterRoutes(mux, s.corsMiddleware)
	}
	if s.analysisAPI != nil {
		s.analysisAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
