package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/coachline/coaching-core/docs"
	"github.com/coachline/coaching-core/internal/api/handler"
	"github.com/coachline/coaching-core/internal/api/middleware"
	"github.com/coachline/coaching-core/internal/core/ports"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Lifecycle ports.LifecycleService
	Sessions  ports.SessionService
	Resolver  middleware.SessionResolver
	Auditor   ports.RoleAuditor
	Pingers   []handler.Pinger
	Log       zerolog.Logger
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "coaching_http",
		Registerer: registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Lifecycle, deps.Sessions)
	lifecycleHandler := handler.NewLifecycleHandler(deps.Lifecycle)
	auditHandler := handler.NewAuditHandler(deps.Auditor)
	healthHandler := handler.NewHealthHandler(deps.Pingers...)

	authRequired := middleware.Auth(deps.Resolver)
	coachOnly := middleware.CoachOnly()

	// --- Public auth routes ---
	e.POST("/auth/sign-up", authHandler.SignUp)
	e.POST("/auth/sign-in", authHandler.SignIn)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", authRequired)
	v1.GET("/me/landing", authHandler.Landing)

	coach := v1.Group("", coachOnly)
	coach.POST("/leads/:id/approve", lifecycleHandler.Approve)
	coach.PATCH("/leads/:id", lifecycleHandler.UpdateLead)
	coach.PUT("/users/:id/role", lifecycleHandler.UpdateRole)
	coach.POST("/coaches", lifecycleHandler.CreateCoach)
	coach.GET("/admin/role-drift", auditHandler.RoleDrift)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
