package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/tasktrail/core/internal/adapters/gateway"
	httpHandlers "github.com/tasktrail/core/internal/adapters/http"
	"github.com/tasktrail/core/internal/adapters/identity"
	"github.com/tasktrail/core/internal/adapters/record"
	"github.com/tasktrail/core/internal/application/services"
	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/config"
	"github.com/tasktrail/core/internal/infrastructure/localstore"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/store"
)

// Server composes the client application: the stores, the gateway over
// the hosted record service, the identity adapter and the HTTP view
// layer that renders them.
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	users  *store.UserStore
	auth   *services.AuthService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance and restores any persisted session.
func New(cfg *config.Config, state *localstore.Store, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// External service adapters
	records := record.NewClient(cfg.Backend, appLogger)
	identityClient := identity.NewClient(cfg.Backend, appLogger)

	// Stores
	tasks := store.NewTaskStore()
	users := store.NewUserStore(state, appLogger)

	// Gateway and services
	taskGateway := gateway.New(records, appLogger)
	authService := services.NewAuthService(identityClient, records, users, tasks, appLogger)
	dashboardService := services.NewDashboardService(taskGateway, tasks, appLogger)

	// Handlers
	authHandler := httpHandlers.NewAuthHandler(authService, users, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(dashboardService, tasks, appLogger)
	shellHandler := httpHandlers.NewShellHandler(state, appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		users:  users,
		auth:   authService,
	}

	server.setupMiddleware()
	server.setupRoutes(authHandler, taskHandler, shellHandler)

	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	// Session restore happens before the first request so a returning
	// user lands on the dashboard directly.
	if authService.Restore() {
		appLogger.Info("Resumed persisted session")
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(authHandler *httpHandlers.AuthHandler, taskHandler *httpHandlers.TaskHandler, shellHandler *httpHandlers.ShellHandler) {
	s.echo.GET("/health", s.healthCheck)

	v1 := s.echo.Group("/api/v1")

	// Shell routes (public)
	v1.GET("/theme", shellHandler.GetTheme)
	v1.POST("/theme/toggle", shellHandler.ToggleTheme)
	v1.GET("/options", shellHandler.FormOptions)

	// Auth routes (public)
	authGroup := v1.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/logout", authHandler.Logout, s.requireSession())

	// Authenticated routes: route guarding by authentication status
	userGroup := v1.Group("/users", s.requireSession())
	userGroup.GET("/me", authHandler.Me)

	taskGroup := v1.Group("/tasks", s.requireSession())
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.GET("/:id/edit", taskHandler.EditTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	taskGroup.POST("/:id/toggle", taskHandler.ToggleComplete)
	taskGroup.GET("/:id/tags", taskHandler.ListTags)

	tagGroup := v1.Group("/tags", s.requireSession())
	tagGroup.POST("", taskHandler.CreateTag)
	tagGroup.DELETE("/:id", taskHandler.DeleteTag)

	selectionGroup := v1.Group("/selection", s.requireSession())
	selectionGroup.DELETE("", taskHandler.ClearSelection)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// requireSession guards routes behind authentication status: requests
// without an active session are rejected, never proxied to the backend.
func (s *Server) requireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.users.IsAuthenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required")
			}
			return next(c)
		}
	}
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler maps the error taxonomy to HTTP responses: client
// precondition failures, validation errors, missing records and remote
// failures each get their own status. No failure is fatal to the
// process; everything is scoped to the triggering request.
func customErrorHandler(appLogger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := map[string]string{"message": http.StatusText(code)}

		var (
			httpErr   *echo.HTTPError
			remoteErr *entities.RemoteError
			verrs     validator.ValidationErrors
		)

		switch {
		case errors.As(err, &httpErr):
			code = httpErr.Code
			msg = map[string]string{"message": fmt.Sprintf("%v", httpErr.Message)}
		case errors.Is(err, entities.ErrClientNotInitialized):
			code = http.StatusServiceUnavailable
			msg = map[string]string{"message": err.Error()}
		case errors.Is(err, entities.ErrTaskNotFound), errors.Is(err, entities.ErrTagNotFound), errors.Is(err, entities.ErrRecordNotFound):
			code = http.StatusNotFound
			msg = map[string]string{"message": err.Error()}
		case errors.Is(err, entities.ErrTitleRequired),
			errors.Is(err, entities.ErrDueDateInPast),
			errors.Is(err, entities.ErrInvalidStatus),
			errors.Is(err, entities.ErrInvalidPriority),
			errors.Is(err, entities.ErrDeleteNotConfirmed):
			code = http.StatusUnprocessableEntity
			msg = map[string]string{"message": err.Error()}
		case errors.As(err, &verrs):
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": verrs.Error()}
		case errors.As(err, &remoteErr):
			code = http.StatusBadGateway
			msg = map[string]string{"message": remoteErr.Message}
		}

		if code == http.StatusInternalServerError {
			appLogger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			var writeErr error
			if c.Request().Method == echo.HEAD {
				writeErr = c.NoContent(code)
			} else {
				writeErr = c.JSON(code, msg)
			}
			if writeErr != nil {
				appLogger.Errorw("Error sending response", "error", writeErr)
			}
		}
	}
}
