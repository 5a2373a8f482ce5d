package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/umsebenzi/internal/database"
	"github.com/yukikurage/umsebenzi/internal/models"
	"github.com/yukikurage/umsebenzi/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens a migrated in-memory SQLite database. One connection
// keeps the database alive for the whole test and serializes writers.
func newTestStore(t *testing.T) (*gorm.DB, *repository.GormStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.MigrateDatabase(db))
	return db, repository.NewStore(db)
}

func createUser(t *testing.T, store repository.Store, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func issuePtr(i models.Issue) *models.Issue { return &i }

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func strPtr(s string) *string { return &s }

func uint64Ptr(v uint64) *uint64 { return &v }
