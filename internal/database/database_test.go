package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteMemoryMigrates(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "teams", "computers", "blackouts", "reservations"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_time_format=sqlite", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared&_time_format=sqlite", sqliteDSN("file:x.db?cache=shared"))
	assert.Equal(t, "a.db?_time_format=sqlite", sqliteDSN("a.db?_time_format=sqlite"))
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("mysql://sched:pw@db.lan:3306/esports")
	require.NoError(t, err)
	assert.Contains(t, dsn, "sched:pw@tcp(db.lan:3306)/esports")
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN("mysql://sched:pw@db.lan:3306")
	assert.Error(t, err)
}
