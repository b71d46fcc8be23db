// Package main applies or rolls back the Tally schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate steps N
//	migrate version
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/tallybook/tally/internal/repository"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

// migrator is the subset of repository.Migrator the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
}

var errUsage = errors.New("usage: migrate up | down | steps N | version")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	_ = godotenv.Load()

	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	mg, err := repository.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open migrator", "error", err)
		os.Exit(1)
	}

	err = runCommand(mg, os.Args[1:], os.Stdout)
	if closeErr := mg.Close(); closeErr != nil {
		logger.Warn("failed to close migrator", "error", closeErr)
	}
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func runCommand(mg migrator, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "up":
		if len(args) != 1 {
			return errUsage
		}
		if err := mg.Up(); err != nil {
			return err
		}
	case "down":
		if len(args) != 1 {
			return errUsage
		}
		if err := mg.Down(); err != nil {
			return err
		}
	case "steps":
		if len(args) != 2 {
			return errUsage
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q: %w", args[1], errUsage)
		}
		if err := mg.Steps(n); err != nil {
			return err
		}
	case "version":
		if len(args) != 1 {
			return errUsage
		}
	default:
		return errUsage
	}

	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", v, dirty)
	return err
}
