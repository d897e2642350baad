package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"teamflow/config"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type counter struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:32"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	orm, err := Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "data", "test.db"),
	})
	require.NoError(t, err)
	sqlDB, err := orm.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, orm.AutoMigrate(&counter{}))
	return orm
}

func count(t *testing.T, orm *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, orm.Model(&counter{}).Count(&n).Error)
	return n
}

func TestWithTxCommitAndRollback(t *testing.T) {
	orm := openTestDB(t)

	require.NoError(t, WithTx(orm, func(tx *gorm.DB) error {
		return tx.Create(&counter{Name: "a"}).Error
	}))
	assert.EqualValues(t, 1, count(t, orm))

	boom := errors.New("boom")
	err := WithTx(orm, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&counter{Name: "b"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, count(t, orm))

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = WithTx(orm, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&counter{Name: "c"}).Error)
			panic("kaboom")
		})
	})
	assert.EqualValues(t, 1, count(t, orm))
}

func TestOpenTranslatesDuplicateKey(t *testing.T) {
	orm := openTestDB(t)

	require.NoError(t, orm.Create(&counter{Name: "dup"}).Error)
	err := orm.Create(&counter{Name: "dup"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(config.DatabaseConfig{
		Host:     "db",
		Port:     3306,
		Username: "teamflow",
		Password: "p@ss",
		Database: "teamflow",
		Charset:  "utf8mb4",
	})

	parsed, err := mysqlDriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "teamflow", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "teamflow", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
}
