// Package modelstest opens throwaway SQLite databases for package tests.
package modelstest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/models"
)

// New returns a migrated in-memory database private to the test. Seeded
// dentists and suppliers are included; the admin account is not.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := models.InitDB(models.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, models.Seed(db, "", ""))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Patient inserts a patient row and returns it.
func Patient(t testing.TB, db *gorm.DB, first, last, dob, contact string) models.Patient {
	t.Helper()
	p := models.Patient{FirstName: first, LastName: last, DateOfBirth: dob, ContactNumber: contact}
	require.NoError(t, db.Create(&p).Error)
	return p
}
