package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

type crate struct {
	ID    int
	Label string `gorm:"uniqueIndex"`
}

func openMemory(t *testing.T, logg *logger.Logger) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig(logg))
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&crate{}))
	return conn
}

func countCrates(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&crate{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOrRollsBack(t *testing.T) {
	conn := openMemory(t, nil)
	client := NewFromConn(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&crate{Label: "kept"}).Error
	}))
	assert.EqualValues(t, 1, countCrates(t, conn))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&crate{Label: "dropped"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, countCrates(t, conn))

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&crate{Label: "panicked"}).Error)
			panic("boom")
		})
	})
	assert.EqualValues(t, 1, countCrates(t, conn))
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openMemory(t, nil)
	require.NoError(t, conn.Create(&crate{Label: "dup"}).Error)
	err := conn.Create(&crate{Label: "dup"}).Error
	require.Error(t, err)

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "crates.label"))
	assert.False(t, IsUniqueViolation(err, "crates.id"))
	assert.False(t, IsUniqueViolation(errors.New("other"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestPingAndClose(t *testing.T) {
	client := NewFromConn(openMemory(t, nil))
	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

func TestQueryLoggerReportsFailuresButNotMisses(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: zerolog.InfoLevel, Output: &buf})
	conn := openMemory(t, logg)

	var missing crate
	err := conn.First(&missing, "id = ?", 42).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	require.Error(t, conn.Exec("SELECT * FROM no_such_table").Error)
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "query failed", entry["message"])
	assert.Contains(t, entry["sql"], "no_such_table")
}

func TestQueryLoggerFlagsSlowQueries(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: zerolog.InfoLevel, Output: &buf})
	ql := newQueryLogger(logg)

	ql.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Contains(t, buf.String(), `"slow query"`)

	buf.Reset()
	ql.Trace(context.Background(), time.Now(), func() (string, int64) {
		t.Fatal("fast successful queries should not be rendered")
		return "", 0
	}, nil)
	assert.Empty(t, buf.String())
}
