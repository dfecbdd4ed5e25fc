// Package dbtest opens migrated in-memory databases for package tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/models"
)

// New returns a fresh, migrated SQLite database that lives for the duration of the test.
// The pool is pinned to one connection so every session sees the same in-memory database.
func New(t *testing.T) *database.DB {
	t.Helper()

	log := zaptest.NewLogger(t)
	gdb, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(log, "silent"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := database.Wrap(gdb, log)
	require.NoError(t, db.Migrate())
	return db
}

// Channel creates an active channel with working connection settings
func Channel(t *testing.T, db *database.DB) *models.Channel {
	t.Helper()

	ch := &models.Channel{
		Name:           "Test Store",
		URL:            "http://storefront.test",
		APIUser:        "api",
		APIKey:         "key",
		WebsiteID:      1,
		StoreID:        1,
		RootCategoryID: 1,
		AttributeSetID: 4,
		OrderPrefix:    models.DefaultOrderPrefix,
		Active:         true,
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}
