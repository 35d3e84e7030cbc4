package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasktrail/core/cmd/tasktrail/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tasktrail",
		Short: "TaskTrail client",
		Long:  `TaskTrail is a personal task tracker backed by a hosted record and identity service.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewDevStackCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
