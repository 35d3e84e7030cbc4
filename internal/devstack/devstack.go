// Package devstack bundles a local implementation of the record and
// identity service contracts so the client can be developed and tested
// without the hosted backend. It persists to an embedded SQLite file and
// issues real JWT sessions, but it is a development double, not a
// production service.
package devstack

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "modernc.org/sqlite"

	"github.com/tasktrail/core/internal/infrastructure/config"
	"github.com/tasktrail/core/internal/infrastructure/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Server is the development backend: an echo instance over a SQLite
// database, serving both the record and the identity contract.
type Server struct {
	echo   *echo.Echo
	db     *sqlx.DB
	config config.DevStackConfig
	logger *logger.Logger
}

// New opens the database, applies migrations and wires the routes.
func New(cfg config.DevStackConfig, appLogger *logger.Logger) (*Server, error) {
	db, err := sqlx.Connect("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a larger pool just trades errors for locks.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		db:     db,
		config: cfg,
		logger: appLogger,
	}

	s.setupRoutes()

	return s, nil
}

func runMigrations(db *sqlx.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.Recover())

	s.echo.GET("/health", func(c echo.Context) error {
		if err := s.db.Ping(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := s.echo.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/signup", s.handleSignup)
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout", s.handleLogout, s.requireToken)

	tables := v1.Group("/tables", s.requireToken)
	tables.POST("/:table/query", s.handleQuery)
	tables.POST("/:table/records", s.handleCreateRecord)
	tables.GET("/:table/records/:id", s.handleGetRecord)
	tables.PATCH("/:table/records/:id", s.handleUpdateRecord)
	tables.DELETE("/:table/records/:id", s.handleDeleteRecord)
}

// Handler exposes the server as an http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves HTTP on the given address.
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting dev stack", "address", address, "db", s.config.DBPath)
	return s.echo.Start(address)
}

// Shutdown stops the HTTP server and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down dev stack")
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}

// Close releases the database without serving. Used when the server was
// created for its Handler only.
func (s *Server) Close() error {
	return s.db.Close()
}
