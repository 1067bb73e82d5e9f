// Package bootstrap holds the startup and teardown steps every binary shares:
// environment loading, config, logger, backing clients and signal handling.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/instance"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/migrate"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pubsub"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/redis"
)

// exit is replaced in tests.
var exit = os.Exit

type resource struct {
	name   string
	closer io.Closer
}

// Process is one running binary. Resources registered with Track are closed
// in reverse order by Close, including on a fatal startup error.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	resources []resource
}

// Start loads .env and config, then builds the logger for kind. It exits the
// process when the config is invalid.
func Start(kind string) *Process {
	p := &Process{Kind: kind, Logger: logger.New(logger.Options{ServiceName: kind})}
	if err := godotenv.Load(); err != nil {
		p.Logger.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	p.Must("config", err)
	cfg.Service.Kind = kind
	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p
}

// Must logs err against resource, releases everything tracked so far and
// exits with status 1. A nil err is a no-op.
func (p *Process) Must(resource string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(context.Background(), fmt.Sprintf("%s: startup failed", resource), err)
	p.Close()
	exit(1)
}

// Track registers c to be closed on shutdown.
func (p *Process) Track(name string, c io.Closer) {
	p.resources = append(p.resources, resource{name: name, closer: c})
}

// Close releases tracked resources newest first and logs any failures.
func (p *Process) Close() {
	var errs error
	for i := len(p.resources) - 1; i >= 0; i-- {
		res := p.resources[i]
		if err := res.closer.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", res.name, err))
		}
	}
	p.resources = nil
	if errs != nil {
		p.Logger.Error(context.Background(), "shutdown released resources with errors", errs)
	}
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the process log
// fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"serviceKind": p.Kind,
		"instance":    instance.GetID(),
	}
	if p.Config != nil {
		fields["env"] = p.Config.App.Env
	}
	return p.Logger.WithFields(ctx, fields), stop
}

// Database opens Postgres and applies embedded migrations when the dev
// autorun flag is set.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must("database", err)
	p.Track("database", client)
	p.Must("dev migrations", migrate.MaybeRunDev(ctx, p.Config, p.Logger, client))
	return client
}

// Redis connects the shared Redis client.
func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must("redis", err)
	p.Track("redis", client)
	return client
}

// PubSub connects the Pub/Sub client for the configured project.
func (p *Process) PubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	p.Must("pubsub", err)
	p.Track("pubsub", client)
	return client
}
