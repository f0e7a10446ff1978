package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/model"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "intersim"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=intersim sslmode=disable", dsn)
}

func TestMigrate_SQLite(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	// migrating twice is harmless
	require.NoError(t, Migrate(db))
}

func TestDumpToDisk(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	run := model.Run{ID: uuid.New(), Name: "dump", StartTime: time.Now()}
	require.NoError(t, db.Create(&run).Error)

	path := filepath.Join(t.TempDir(), "nested", "dump.db")
	require.NoError(t, DumpToDisk(db, path))
	_, err = os.Stat(path)
	require.NoError(t, err)

	// a second dump replaces the first
	require.NoError(t, DumpToDisk(db, path))

	disk, err := OpenSQLite(path)
	require.NoError(t, err)
	var got model.Run
	require.NoError(t, disk.First(&got, "id = ?", run.ID).Error)
	assert.Equal(t, "dump", got.Name)
}

func TestDumpToDisk_RequiresPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	assert.Error(t, DumpToDisk(db, ""))
}

func TestOpenPostgres_Unreachable(t *testing.T) {
	db, err := OpenPostgres(config.DBConfig{
		Host: "127.0.0.1", Port: "1", Username: "nobody", Password: "x", Database: "none",
	})
	if err != nil {
		return
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestDumpFileName(t *testing.T) {
	start := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "rush_hour_20260304_050607.db", DumpFileName("rush_hour", start))
}
