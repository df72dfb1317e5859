// Package httpapi exposes the raffle engine over HTTP
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"raffle/domain/services"
	"raffle/infrastructure/observability"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Options configures the router
type Options struct {
	Metrics        *observability.Metrics // nil disables /metrics and instrumentation
	RateLimitRPS   float64                // <= 0 disables rate limiting
	RateLimitBurst int
	Clock          func() time.Time
}

type handler struct {
	engine *services.Engine
	clock  func() time.Time
}

// NewRouter returns the REST API for engine
func NewRouter(engine *services.Engine, opts Options) *mux.Router {
	h := &handler{engine: engine, clock: opts.Clock}
	if h.clock == nil {
		h.clock = func() time.Time { return time.Now().UTC() }
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.HandleFunc("/rounds", h.listRounds).Methods(http.MethodGet)
	api.HandleFunc("/rounds/current", h.currentRound).Methods(http.MethodGet)
	api.HandleFunc("/rounds/{id:[0-9]+}", h.getRound).Methods(http.MethodGet)
	api.HandleFunc("/rounds/{id:[0-9]+}/tickets/{account}", h.getTickets).Methods(http.MethodGet)
	api.HandleFunc("/rounds/{id:[0-9]+}/tickets", h.buyTickets).Methods(http.MethodPost)
	api.HandleFunc("/rounds/{id:[0-9]+}/close", h.closeRound).Methods(http.MethodPost)
	api.HandleFunc("/rounds/{id:[0-9]+}/claim/{account}", h.claimStatus).Methods(http.MethodGet)
	api.HandleFunc("/rounds/{id:[0-9]+}/claim", h.claimPrize).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{account}/winnings", h.winnings).Methods(http.MethodGet)

	if opts.RateLimitRPS > 0 {
		api.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware)
	}
	if opts.Metrics != nil {
		router.Use(metricsMiddleware(opts.Metrics))
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no such route"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed", Message: r.Method + " not allowed"})
	})
	return router
}

// NewServer wraps handler in an http.Server with conservative timeouts
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
