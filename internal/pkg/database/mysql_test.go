package database

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLConfig_DSN(t *testing.T) {
	c := MySQLConfig{Host: "db.local", Port: 3307, User: "remind", Password: "p@ss", Database: "returnremind"}

	parsed, err := mysqldriver.ParseDSN(c.DSN())
	require.NoError(t, err)
	assert.Equal(t, "remind", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "returnremind", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "UTC", parsed.Loc.String())
}
