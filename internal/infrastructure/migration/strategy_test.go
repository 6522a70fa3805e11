package migration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testFingerprint = "4094803429B41070E43CBDBDD0B8B27CCCB7AAC3"

func setupSqliteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Goose and the assertions must share the one in-memory database.
	sqlDB.SetMaxOpenConns(1)

	return db
}

func TestGooseStrategy_SqliteScripts(t *testing.T) {
	db := setupSqliteDB(t)

	dialect := DialectFor("sqlite")
	strategy := NewGooseStrategy(ScriptsPath("scripts", dialect), dialect)
	require.NoError(t, strategy.Migrate(db))

	gs, ok := strategy.(*GooseStrategy)
	require.True(t, ok)

	version, err := gs.GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"routers", "subscribers", "subscriptions"} {
		var count int64
		require.NoError(t, db.Raw(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
			table).Scan(&count).Error)
		assert.Equal(t, int64(1), count, table)
	}

	t.Run("fingerprint stays unique", func(t *testing.T) {
		insert := "INSERT INTO routers (fingerprint, name) VALUES (?, ?)"
		require.NoError(t, db.Exec(insert, testFingerprint, "ExampleRelay").Error)
		assert.Error(t, db.Exec(insert, testFingerprint, "Clone").Error)
	})

	t.Run("down unwinds everything", func(t *testing.T) {
		require.NoError(t, gs.MigrateDown(db, 1))

		version, err := gs.GetVersion(db)
		require.NoError(t, err)
		assert.Equal(t, int64(0), version)
	})
}

func TestDialectScriptsLayout(t *testing.T) {
	assert.Equal(t, "mysql", DialectFor("mysql"))
	assert.Equal(t, "sqlite3", DialectFor("sqlite"))
	assert.Equal(t, "sqlite3", DialectFor(""))

	assert.Equal(t, filepath.Join("scripts", "mysql"), ScriptsPath("scripts", "mysql"))
	assert.Equal(t, filepath.Join("scripts", "sqlite"), ScriptsPath("scripts", "sqlite3"))

	// Every dialect directory carries the same script set.
	mysqlScripts, err := filepath.Glob(filepath.Join("scripts", "mysql", "*.sql"))
	require.NoError(t, err)
	sqliteScripts, err := filepath.Glob(filepath.Join("scripts", "sqlite", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, mysqlScripts)
	assert.Len(t, sqliteScripts, len(mysqlScripts))
}
