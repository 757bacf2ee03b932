// Package api exposes the scheduling and reservation services over a thin
// JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dockbook/internal/apperr"
	"dockbook/internal/models"
	"dockbook/internal/service"
)

// BranchDirectory lists the branch catalog for discovery.
type BranchDirectory interface {
	ListActiveBranches(ctx context.Context) ([]models.Branch, error)
}

// HTTPServer serves the reservation API.
type HTTPServer struct {
	availability *service.AvailabilityService
	templates    *service.TemplateService
	reservations *service.ReservationService
	branches     BranchDirectory
	logger       *zerolog.Logger

	limiters  map[string]*rate.Limiter
	limiterMu sync.Mutex
	rateLimit rate.Limit
	rateBurst int

	server *http.Server
}

// NewHTTPServer wires the services into a server listening on port.
// ratePerSec <= 0 disables rate limiting.
func NewHTTPServer(port int, availability *service.AvailabilityService, templates *service.TemplateService, reservations *service.ReservationService, branches BranchDirectory, ratePerSec float64, burst int, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		availability: availability,
		templates:    templates,
		reservations: reservations,
		branches:     branches,
		logger:       logger,
		limiters:     make(map[string]*rate.Limiter),
		rateLimit:    rate.Limit(ratePerSec),
		rateBurst:    burst,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/branches", s.withRateLimit(s.handleBranches))
	mux.HandleFunc("/api/availability", s.withRateLimit(s.handleAvailability))
	mux.HandleFunc("/api/templates", s.withRateLimit(s.handleTemplates))
	mux.HandleFunc("/api/templates/", s.withRateLimit(s.handleTemplateByID))
	mux.HandleFunc("/api/templates/impact", s.withRateLimit(s.handleImpact))
	mux.HandleFunc("/api/reservations", s.withRateLimit(s.handleReservations))
	mux.HandleFunc("/api/reservations/", s.withRateLimit(s.handleReservationByID))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server started")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *HTTPServer) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	if s.rateLimit <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiterFor(host).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) limiterFor(host string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(s.rateLimit, s.rateBurst)
		s.limiters[host] = limiter
	}
	return limiter
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps business error kinds to HTTP statuses; everything
// else is an internal error.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusBadRequest
	switch appErr.Kind {
	case apperr.KindTemplateNotFound, apperr.KindReservationNotFound:
		status = http.StatusNotFound
	case apperr.KindTemplateAlreadyExists, apperr.KindTemplateOverlap,
		apperr.KindReservationConflict, apperr.KindReservationStatus:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{
		"error": appErr.Message,
		"kind":  string(appErr.Kind),
	})
}
