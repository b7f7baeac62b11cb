package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aigoflow/kubescale-predictor/internal/handlers"
	"github.com/aigoflow/kubescale-predictor/internal/services"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	httpAddr       string
	predictor      *services.PredictionService
	metricsHandler http.Handler
}

// NewServer builds the HTTP server. metricsHandler is nil when no metrics
// sink was configured.
func NewServer(httpAddr string, predictor *services.PredictionService, metricsHandler http.Handler) *Server {
	return &Server{
		httpAddr:       httpAddr,
		predictor:      predictor,
		metricsHandler: metricsHandler,
	}
}

// Router returns the fully wired handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger)
	r.Use(middleware.Recoverer)

	handlers.NewPredictionHandler(s.predictor, s.metricsHandler).RegisterRoutes(r)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.httpAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		availability := s.predictor.Availability()
		slog.Info("HTTP server starting",
			"addr", s.httpAddr,
			"tavily_enabled", availability.Search,
			"groq_enabled", availability.LLM,
			"metrics_enabled", s.metricsHandler != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
