package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN(Config{User: "portal", Password: "pw", Host: "db.internal", Port: 3307, Name: "credsvc"})
	require.NoError(t, err)
	require.Equal(t, "portal:pw@tcp(db.internal:3307)/credsvc?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}

func TestMySQLDSNDefaultsAndOverride(t *testing.T) {
	dsn, err := mysqlDSN(Config{User: "portal", Name: "credsvc"})
	require.NoError(t, err)
	require.Equal(t, "portal@tcp(127.0.0.1:3306)/credsvc?charset=utf8mb4&parseTime=True&loc=Local", dsn)

	dsn, err = mysqlDSN(Config{DSN: "raw-dsn"})
	require.NoError(t, err)
	require.Equal(t, "raw-dsn", dsn)

	_, err = mysqlDSN(Config{Name: "credsvc"})
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn, err := postgresDSN(Config{User: "portal", Password: "pw", Host: "db.internal", Port: 5433, Name: "credsvc", SSLMode: "require"})
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5433 user=portal dbname=credsvc sslmode=require password=pw", dsn)
}

func TestPostgresDSNDefaults(t *testing.T) {
	dsn, err := postgresDSN(Config{User: "portal", Name: "credsvc"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=portal dbname=credsvc sslmode=disable", dsn)

	_, err = postgresDSN(Config{User: "portal"})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	dsn, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)

	dsn, err = sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)

	path := filepath.Join(t.TempDir(), "nested", "credsvc.sqlite")
	dsn, err = sqliteDSN(Config{Path: path})
	require.NoError(t, err)
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.DirExists(t, filepath.Dir(path))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
