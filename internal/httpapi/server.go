// Package httpapi exposes the agent runtime over HTTP.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZanzyTHEbar/agentgraph"
)

// Server wraps the runtime with an HTTP surface.
type Server struct {
	runtime *agentgraph.Runtime
	router  chi.Router
	metrics *metrics
}

// NewServer creates the HTTP server around a runtime.
func NewServer(runtime *agentgraph.Runtime) *Server {
	s := &Server{
		runtime: runtime,
		metrics: newMetrics(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.timing)
	r.Use(enableCORS)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/process/async", s.handleProcessAsync)
		r.Get("/executions/{id}", s.handleGetExecution)
		r.Delete("/executions/{id}", s.handleCancelExecution)
		r.Get("/health", s.handleHealth)
		r.Get("/agents", s.handleAgents)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req agentgraph.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body", agentgraph.ErrCodeValidation)
		return
	}

	resp, err := s.runtime.Process(r.Context(), req)
	if err != nil {
		s.writeProcessingError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleProcessAsync(w http.ResponseWriter, r *http.Request) {
	var req agentgraph.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body", agentgraph.ErrCodeValidation)
		return
	}

	executionID, err := s.runtime.ProcessAsync(r.Context(), req)
	if err != nil {
		s.writeProcessingError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusAccepted, map[string]interface{}{
		"execution_id": executionID,
		"status":       agentgraph.ExecutionRunning,
	})
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	info, err := s.runtime.GetExecution(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err.Error(), "NOT_FOUND")
		return
	}
	s.writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	cancelled, err := s.runtime.CancelExecution(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err.Error(), "NOT_FOUND")
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"execution_id": chi.URLParam(r, "id"),
		"cancelled":    cancelled,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agentgraph",
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	catalog := s.runtime.Agents()
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"agents":       catalog,
		"total_agents": len(catalog),
		"task_types":   agentgraph.AllTaskTypes,
	})
}

// errorResponse is the envelope for all error payloads.
type errorResponse struct {
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// writeProcessingError maps a runtime error onto an HTTP response. Agent
// errors surface their message and code as a bad request; anything else is a
// generic internal error so callers never see internal details.
func (s *Server) writeProcessingError(w http.ResponseWriter, r *http.Request, err error) {
	if ae, ok := agentgraph.AsAgentError(err); ok {
		s.writeError(w, r, http.StatusBadRequest, ae.Message, ae.Code)
		return
	}
	log.Printf("Unhandled processing error: %v", err)
	s.writeError(w, r, http.StatusInternalServerError, "Internal server error", agentgraph.ErrCodeInternal)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message, errorType string) {
	s.writeJSON(w, r, status, errorResponse{
		Error:     message,
		ErrorType: errorType,
		Timestamp: time.Now().UTC(),
		RequestID: requestIDFrom(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
