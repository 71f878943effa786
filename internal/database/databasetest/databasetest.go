// Package databasetest opens migrated in-memory databases for package tests.
package databasetest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/kabirclub/internal/database"
)

// New returns a fresh SQLite database with every table migrated. The pool is
// pinned to one connection so the in-memory database is shared by all queries.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(conn))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// Break closes the underlying pool so every later query fails.
func Break(t testing.TB, conn *gorm.DB) {
	t.Helper()

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
