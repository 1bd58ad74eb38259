package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/thesisreg/backend/internal/config"
	constants "github.com/thesisreg/backend/internal/constants"
	"github.com/thesisreg/backend/internal/logger"
	"github.com/thesisreg/backend/migrations"
	"github.com/thesisreg/backend/pkg/migrate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := config.Load()
	logger.InitWithLevel(os.Stderr, logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		logger.LogError("Invalid configuration", err)
		os.Exit(1)
	}

	migrator, err := migrate.NewMigrator(ctx, cfg.DatabaseURL, migrations.FS)
	if err != nil {
		logger.LogError("Failed to create migrator", err)
		os.Exit(1)
	}
	defer migrator.Close(context.Background())

	switch command {
	case "up":
		handleUp(ctx, migrator)
	case "down":
		handleDown(ctx, migrator)
	case "steps":
		handleSteps(ctx, migrator, os.Args[2:])
	case "version", "status":
		handleVersion(ctx, migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleUp(ctx context.Context, migrator *migrate.Migrator) {
	logger.LogInfo("Applying migrations...")
	if err := migrator.Up(ctx); err != nil {
		logger.LogError("Failed to apply migrations", err)
		os.Exit(1)
	}
	logger.LogInfo("Migrations applied successfully!")
}

func handleDown(ctx context.Context, migrator *migrate.Migrator) {
	logger.LogInfo("Rolling back migration...")
	if err := migrator.Down(ctx); err != nil {
		logger.LogError("Failed to rollback migration", err)
		os.Exit(1)
	}
	logger.LogInfo("Migration rolled back successfully!")
}

func handleSteps(ctx context.Context, migrator *migrate.Migrator, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: 'steps' command requires a number argument\n")
		os.Exit(1)
	}

	steps, err := strconv.Atoi(args[0])
	if err != nil {
		logger.LogError("Invalid number", err)
		os.Exit(1)
	}

	if err := migrator.Steps(ctx, steps); err != nil {
		logger.LogError("Failed to execute steps", err)
		os.Exit(1)
	}
}

func handleVersion(ctx context.Context, migrator *migrate.Migrator) {
	version, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		logger.LogError("Failed to get current version", err)
		os.Exit(1)
	}

	if version == migrate.NoVersion {
		fmt.Println("No migrations applied")
		return
	}
	fmt.Printf("Current migration version: %d\n", version)
}

func printUsage() {
	fmt.Fprintf(os.Stdout, `Usage: migrate <command>

Commands:
  up                  Apply all pending migrations
  down                Rollback the last migration
  steps <number>      Apply or rollback specific number of migrations
                      (positive for up, negative for down)
  version, status     Show current migration version
  help                Show this help message

Environment Variables:
  %s        Database connection URL
  %s           Log level (debug, info, warn, error)
`, constants.DATABASE_URL, constants.LOG_LEVEL)
}
