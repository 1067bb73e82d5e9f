package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir DIR] <command> [arg]

commands:
  up              apply every pending migration
  down            roll back the latest migration
  redo            roll back and re-apply the latest migration
  status          print the applied version and pending versions
  version         print the applied version
  goto VERSION    migrate up or down to VERSION (YYYYMMDDHHMMSS)
  create NAME     write a new timestamped SQL migration into -dir
  validate        check file names and goose annotations in -dir
`

func main() {
	dir := flag.String("dir", "", "migrations directory (default: files embedded in the binary; pkg/migrate/migrations for create/validate)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	cmd, arg := flag.Arg(0), flag.Arg(1)
	if cmd == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	// Offline commands work on the files alone.
	switch cmd {
	case "create":
		if arg == "" {
			fail("create needs a NAME")
		}
		path, err := migrate.CreateSQLMigration(diskDir(*dir), arg)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(diskDir(*dir)); err != nil {
			fail("validation failed: %v", err)
		}
		fmt.Println("migrations valid")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}

	var changed []migrate.Result
	switch cmd {
	case "up", "down", "redo":
		changed, err = migrate.Apply(ctx, sqlDB, *dir, migrate.Command(cmd))
	case "goto":
		if arg == "" {
			err = errors.New("goto needs a VERSION")
			break
		}
		changed, err = migrate.MigrateToVersion(ctx, sqlDB, *dir, arg)
	case "status", "version":
		var (
			current int64
			pending []int64
		)
		current, pending, err = migrate.Status(ctx, sqlDB, *dir)
		if err != nil {
			break
		}
		fmt.Println("current version:", current)
		if cmd == "status" {
			for _, v := range pending {
				fmt.Println("pending:", v)
			}
			if len(pending) == 0 {
				fmt.Println("no pending migrations")
			}
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	for _, r := range changed {
		fmt.Printf("%-4s %d (%s)\n", r.Direction, r.Version, r.Duration)
	}
	if err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "changed", len(changed)), "migrate finished")
}

func diskDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
