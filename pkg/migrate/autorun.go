package migrate

import (
	"context"
	"fmt"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// MaybeRunDev brings a dev database up to date on boot when
// SUNFLOWER_AUTO_MIGRATE is on. SQLite has no enum types, so it is built from
// the gorm models; postgres gets the embedded goose migrations.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() || cfg.FeatureFlags.UseSQLite {
		logg.Info(logg.WithField(ctx, "driver", config.DBDriverSQLite), "auto-migrating gorm models")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrating models: %w", err)
		}
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	applied, err := Apply(ctx, sqlDB, "", CommandUp)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "dev migrations up to date")
	return nil
}
