package users

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/gallery/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_CreateUser(t *testing.T) {
	repo := setupTestDB(t)

	user, err := repo.CreateUser("alice", "alice@example.com")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Len(t, user.Token, 64)

	other, err := repo.CreateUser("bob", "bob@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, user.Token, other.Token)
}

func TestRepository_Lookups(t *testing.T) {
	repo := setupTestDB(t)
	created, err := repo.CreateUser("alice", "alice@example.com")
	require.NoError(t, err)

	byToken, err := repo.GetUserByToken(created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)

	byName, err := repo.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = repo.GetUserByToken("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetUserByID(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_EnsureDefaultUser(t *testing.T) {
	repo := setupTestDB(t)

	first, err := repo.EnsureDefaultUser()
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultUserID, first.ID)

	second, err := repo.EnsureDefaultUser()
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
}
