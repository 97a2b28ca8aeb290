package testutil

import (
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/mannyc2/watchify-app-sub000/internal/data/db"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

var (
	dbOnce sync.Once
	gdb    *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a shared in-memory sqlite database with the catalog schema
// migrated. Tests isolate themselves with Tx.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		gdb, dbErr = gorm.Open(
			sqlite.Open("file:watchify_test?mode=memory&cache=shared&_foreign_keys=on"),
			&gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)},
		)
		if dbErr != nil {
			return
		}
		// cache=shared keeps the schema alive across connections; a single
		// open connection avoids sqlite lock contention between tests.
		sqlDB, err := gdb.DB()
		if err != nil {
			dbErr = err
			return
		}
		sqlDB.SetMaxOpenConns(1)
		dbErr = db.AutoMigrateAll(gdb)
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return gdb
}

// Tx begins a transaction that is rolled back when the test finishes.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
