package migrate_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate dir: %v", err)
	}
}

func TestSellsMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_sells"), []string{
		"CREATE TABLE IF NOT EXISTS sells",
		"version bigint NOT NULL DEFAULT 1",
		"CHECK (delivery_days BETWEEN 1 AND 365)",
		"CHECK (amount_paid >= 0 AND amount_paid <= total_amount)",
		"CREATE TABLE IF NOT EXISTS harvest_movements",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_harvest_movements_sell_out",
		"DROP TABLE IF EXISTS sells",
	})
}

func TestPurchasesMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_purchases"), []string{
		"CREATE TABLE IF NOT EXISTS purchases",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_purchases_sell ON purchases (sell_id)",
		"CREATE TABLE IF NOT EXISTS purchase_payments",
		"paypack_ref text NULL",
		"DROP TABLE IF EXISTS purchase_payments",
	})
}

func TestStorageOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_storage_orders"), []string{
		"CREATE TYPE storage_order_status AS ENUM ('pending', 'confirmed', 'rejected')",
		"CREATE TYPE storage_availability AS ENUM ('waiting', 'imported', 'exported')",
		"CREATE TABLE IF NOT EXISTS storage_orders",
		"CHECK (quantity > 0)",
		"CHECK (availability_status = 'waiting' OR status = 'confirmed')",
		"DROP TYPE IF EXISTS storage_order_status",
	})
}

func TestEnumsMigrationMatchesDomainValues(t *testing.T) {
	assertContains(t, readMigration(t, "create_enums"), []string{
		"CREATE TYPE sell_status AS ENUM ('posted', 'purchased', 'completed', 'cancelled')",
		"CREATE TYPE listing_payment_status AS ENUM ('unpaid', 'partial', 'paid')",
		"CREATE TYPE purchase_status AS ENUM ('pending_payment', 'partially_paid', 'fully_paid', 'delivered', 'cancelled')",
		"CREATE TYPE user_role AS ENUM ('admin', 'farmer', 'buyer', 'minagri_officer')",
	})
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Delivery Zones!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_delivery_zones.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	inBinary, err := fs.Glob(embedded, "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(inBinary) == 0 || len(inBinary) != len(onDisk) {
		t.Fatalf("embedded %d migrations, disk has %d", len(inBinary), len(onDisk))
	}
	for i := range onDisk {
		if filepath.Base(onDisk[i]) != inBinary[i] {
			t.Fatalf("migration %d differs: disk %s embedded %s", i, onDisk[i], inBinary[i])
		}
	}
}

func TestSourceRejectsMissingDir(t *testing.T) {
	if _, err := migrate.Source(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected missing dir error")
	}
}

func TestMigrateToVersionRejectsMalformedVersion(t *testing.T) {
	if _, err := migrate.MigrateToVersion(context.Background(), nil, "", "2026"); err == nil {
		t.Fatal("expected malformed version error")
	}
}
