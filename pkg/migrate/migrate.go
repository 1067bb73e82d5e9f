package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `-cmd=create` and `-cmd=validate` look on disk.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Command names a schema change the migrate CLI can apply.
type Command string

const (
	CommandUp   Command = "up"
	CommandDown Command = "down"
	CommandRedo Command = "redo"
)

// Result describes one applied or rolled back migration.
type Result struct {
	Version   int64
	Direction string
	Duration  time.Duration
}

// Source returns the migration files in dir, or the set compiled into the
// binary when dir is empty.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	return os.DirFS(dir), nil
}

// The schema uses enum types and partial indexes, so it targets postgres only.
func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	source, err := Source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Apply runs cmd against db. Down and redo move a single version.
func Apply(ctx context.Context, db *sql.DB, dir string, cmd Command) ([]Result, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	switch cmd {
	case CommandUp:
		applied, err := provider.Up(ctx)
		return results(applied...), wrapGoose(cmd, err)
	case CommandDown:
		reverted, err := provider.Down(ctx)
		return results(reverted), wrapGoose(cmd, err)
	case CommandRedo:
		reverted, err := provider.Down(ctx)
		if err != nil {
			return results(reverted), wrapGoose(cmd, err)
		}
		reapplied, err := provider.UpByOne(ctx)
		return results(reverted, reapplied), wrapGoose(cmd, err)
	default:
		return nil, fmt.Errorf("unknown migrate command %q", cmd)
	}
}

// Status reports the applied version and the versions still pending.
func Status(ctx context.Context, db *sql.DB, dir string) (int64, []int64, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return 0, nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("get db version: %w", err)
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("goose status: %w", err)
	}
	pending := []int64{}
	for _, st := range statuses {
		if st.State == goose.StatePending {
			pending = append(pending, st.Source.Version)
		}
	}
	return current, pending, nil
}

// MigrateToVersion moves the schema up or down until target (YYYYMMDDHHMMSS)
// is the applied version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, target string) ([]Result, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || len(target) != len(versionLayout) {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var changed []*goose.MigrationResult
	switch {
	case current < version:
		changed, err = provider.UpTo(ctx, version)
	case current > version:
		changed, err = provider.DownTo(ctx, version)
	}
	if err != nil {
		return results(changed...), fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return results(changed...), nil
}

func results(in ...*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Result{Version: r.Source.Version, Direction: r.Direction, Duration: r.Duration})
	}
	return out
}

func wrapGoose(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", cmd, err)
}
