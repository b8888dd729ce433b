package testhelpers

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var dbCounter atomic.Int64

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	}
	migrateSchema = models.AutoMigrate
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
// A single connection keeps the shared in-memory database alive and serializes writers.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))
	db, err := openSQLite(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrateSchema(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// DropTable removes a table to force repository errors.
func DropTable(t *testing.T, db *gorm.DB, model interface{}) {
	t.Helper()
	if err := db.Migrator().DropTable(model); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
}

// SetupRedis starts a miniredis server and a client connected to it.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
