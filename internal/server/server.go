package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/coachline/coaching-core/internal/api"
	"github.com/coachline/coaching-core/internal/core/service"
	"github.com/coachline/coaching-core/internal/infrastructure/mq"
	"github.com/coachline/coaching-core/internal/infrastructure/queue"
	"github.com/coachline/coaching-core/internal/pkg/config"
)

const shutdownTimeout = 15 * time.Second

// Server owns the HTTP surface and the background workers behind it.
type Server struct {
	addr       string
	echo       *echo.Echo
	stores     *Stores
	bus        *mq.MQ
	dispatcher *queue.Dispatcher
	reconciler *service.Reconciler
	log        zerolog.Logger
}

// New opens the stores and the notification bus and wires the lifecycle engine.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	stores, err := OpenStores(ctx, cfg, true, log)
	if err != nil {
		return nil, err
	}

	bus, err := mq.Open(ctx, cfg, log.With().Str("component", "mq").Logger())
	if err != nil {
		_ = stores.Close(ctx)
		return nil, err
	}

	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, bus, stores.Dedup, cfg.Notify.Topic,
		log.With().Str("component", "dispatcher").Logger())

	lifecycle := service.NewLifecycleService(stores.Identities, stores.Profiles, dispatcher,
		cfg.StoreCallTimeout, log.With().Str("component", "lifecycle").Logger())

	auditLog := log.With().Str("component", "audit").Logger()
	audit := service.NewAuditService(stores.Identities, stores.Profiles, service.AuditOptions{StoreTimeout: cfg.StoreCallTimeout}, auditLog)

	e := api.NewRouter(api.Deps{
		Lifecycle: lifecycle,
		Sessions:  lifecycle,
		Resolver:  stores.Identities,
		Auditor:   audit,
		Pingers:   stores.Pingers,
		Log:       log.With().Str("component", "http").Logger(),
	})

	return &Server{
		addr:       ":" + cfg.Port,
		echo:       e,
		stores:     stores,
		bus:        bus,
		dispatcher: dispatcher,
		reconciler: service.NewReconciler(audit, cfg.AuditInterval, auditLog),
		log:        log,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down: HTTP first, then the
// notification workers drain, then the backends close.
func (s *Server) Run(ctx context.Context) error {
	workCtx, stopWork := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWork()

	s.dispatcher.Start(workCtx)

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		s.reconciler.Run(workCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down")
	case runErr = <-errCh:
		s.log.Error().Err(runErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("http shutdown")
	}
	stopWork()
	s.dispatcher.Wait()
	bg.Wait()

	if err := s.bus.Close(); err != nil {
		s.log.Error().Err(err).Msg("close notification bus")
	}
	if err := s.stores.Close(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("close stores")
	}
	return runErr
}
