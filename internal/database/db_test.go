package database

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("pos", "secret", "db.local", "3306", "sales")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "pos", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db.local:3306", cfg.Addr)
	assert.Equal(t, "sales", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "UTC", cfg.Loc.String())
}

func TestDSN_EmptyPassword(t *testing.T) {
	dsn := DSN("pos", "", "localhost", "3306", "sales")
	assert.True(t, strings.HasPrefix(dsn, "pos@tcp(localhost:3306)/sales"))
}

func TestMigrationsCoverEveryTable(t *testing.T) {
	for i, table := range []string{"users", "refresh_tokens", "products", "sales", "sale_items"} {
		base := fmt.Sprintf("migrations/%06d_create_%s", i+1, table)

		up, err := fs.ReadFile(migrations, base+".up.sql")
		require.NoError(t, err)
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table+" (")

		down, err := fs.ReadFile(migrations, base+".down.sql")
		require.NoError(t, err)
		assert.Contains(t, string(down), "DROP TABLE IF EXISTS "+table)
	}
}

func TestMigrationSourceParses(t *testing.T) {
	src, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
}
