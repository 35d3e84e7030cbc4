package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/tasktrail/core/internal/devstack"
	"github.com/tasktrail/core/internal/infrastructure/config"
	"github.com/tasktrail/core/internal/infrastructure/localstore"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskTrail client",
		Long:  "Serve the TaskTrail views against the configured record and identity services",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewDevStackCommand creates the devstack command
func NewDevStackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devstack",
		Short: "Start the local development backend",
		Long:  "Serve a local implementation of the record and identity contracts over SQLite",
		Run: func(cmd *cobra.Command, args []string) {
			runDevStack()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskTrail version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TaskTrail v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	state, err := localstore.Open(cfg.State.Path)
	if err != nil {
		appLogger.Fatalw("Failed to open state file", "error", err)
	}

	srv, err := server.New(cfg, state, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting TaskTrail client",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
		appLogger.Fatalw("Server failed to start", "error", err)
	}
}

func runDevStack() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	srv, err := devstack.New(cfg.DevStack, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize dev stack", "error", err)
	}

	if err := srv.Start(fmt.Sprintf("%s:%d", cfg.DevStack.Host, cfg.DevStack.Port)); err != nil {
		appLogger.Fatalw("Dev stack failed to start", "error", err)
	}
}
