package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/config"
)

func TestNewDatabase_SQLiteUsesSingleConnection(t *testing.T) {
	for _, driver := range []config.DatabaseDriver{config.DatabaseDriverSQLite, ""} {
		t.Run("driver "+string(driver), func(t *testing.T) {
			db, err := NewDatabase(config.Database{
				Driver: driver,
				Path:   filepath.Join(t.TempDir(), "library.db"),
			})
			require.NoError(t, err)
			defer db.Close()

			sqlDB, err := db.DB.DB()
			require.NoError(t, err)
			assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
			assert.NoError(t, db.Ping())
		})
	}
}

func TestNewDatabase_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = NewDatabase(config.Database{Driver: config.DatabaseDriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_DSN")
}
