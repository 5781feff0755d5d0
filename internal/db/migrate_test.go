package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/networth/internal/models"
)

func TestMigrate_SQLite(t *testing.T) {
	database, err := ConnectSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.Health())

	applied, err := database.Migrate(nil)
	require.NoError(t, err)
	assert.Equal(t, len(Migrations), applied)

	for _, table := range []interface{}{
		&models.Account{}, &models.Trade{}, &models.BalanceSnapshot{},
		&models.NetWorthPoint{}, &models.AssetPrice{}, &models.LedgerVersion{},
	} {
		assert.True(t, database.Migrator().HasTable(table))
	}

	applied, err = database.Migrate(nil)
	require.NoError(t, err)
	assert.Zero(t, applied, "second run is a no-op")
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(&Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")
	cfg := NewConfig()
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Path)
	assert.Contains(t, cfg.DSN(), "dbname=networth")
}
