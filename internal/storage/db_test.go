package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a migrated database in a temporary directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), "inkforge.db"))
	config.AutoMigrate = true

	db, err := Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	assert.Equal(t, "test.db", config.Path)
	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, config.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, config.BusyTimeout)
	assert.Equal(t, "WAL", config.JournalMode)
	assert.False(t, config.AutoMigrate)
}

func TestOpen(t *testing.T) {
	db := setupTestDB(t)

	require.NotNil(t, db.Conn())
	assert.NoError(t, db.Conn().Ping())
	assert.Equal(t, "inkforge.db", filepath.Base(db.Path()))

	var tables int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('cards', 'card_colors', 'card_legalities', 'card_embeddings')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 4, tables)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(&Config{})
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "close.db")))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.Error(t, db.Conn().Ping())
}

func TestMigrationManager(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	mgr, err := NewMigrationManager(path)
	require.NoError(t, err)
	defer func() { _ = mgr.Close() }()

	version, dirty, err := mgr.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, mgr.Up())
	require.NoError(t, mgr.Up(), "second run is a no-op")

	version, dirty, err = mgr.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, mgr.Down())
	version, _, err = mgr.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
