package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"oneclick/internal/models"
)

func TestInit_SQLiteFileMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oneclick.db")

	db, err := Init(Config{Driver: "sqlite", DSN: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	for _, table := range []any{&models.User{}, &models.Transaction{}, &models.Package{}, &models.GenerationSession{}, &models.BuildJob{}, &models.UserSettings{}, &models.ModelSetting{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// A second open replays nothing.
	db, err = Init(Config{Driver: "sqlite", DSN: path, LogLevel: logger.Silent})
	require.NoError(t, err)
	var applied int64
	require.NoError(t, db.Table("migrations").Count(&applied).Error)
	assert.EqualValues(t, 4, applied)
}

func TestInit_RejectsUnknownDriver(t *testing.T) {
	_, err := Init(Config{Driver: "oracle", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestInit_NetworkDriversNeedDSN(t *testing.T) {
	_, err := Init(Config{Driver: "postgres"})
	assert.ErrorContains(t, err, "requires a dsn")
	_, err = Init(Config{Driver: "mysql"})
	assert.ErrorContains(t, err, "requires a dsn")
}
