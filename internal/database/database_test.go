package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/entities"
)

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(config.Database{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())

	for _, model := range Models {
		assert.True(t, db.DB.Migrator().HasTable(model))
	}

	imp := &entities.Import{UserID: 1, Provider: "flickr", ExternalAlbumID: "a1"}
	require.NoError(t, db.DB.Create(imp).Error)

	var stored entities.Import
	require.NoError(t, db.DB.First(&stored, imp.ID).Error)
	assert.Equal(t, entities.ImportStatusPending, stored.Status)

	dup := &entities.Import{UserID: 1, Provider: "flickr", ExternalAlbumID: "a1"}
	assert.Error(t, db.DB.Create(dup).Error)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewDatabase_PostgresRequiresDSN(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "postgres"})
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_journal_mode=WAL&_busy_timeout=5000", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?mode=ro", sqliteDSN("a.db?mode=ro"))
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
}
