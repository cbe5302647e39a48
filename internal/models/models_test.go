package models_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/models/modelstest"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := modelstest.New(t)

	require.NoError(t, models.Seed(db, "admin", "clinic2026"))
	require.NoError(t, models.Seed(db, "admin", "clinic2026"))

	var dentists, suppliers, users int64
	require.NoError(t, db.Model(&models.Dentist{}).Count(&dentists).Error)
	require.NoError(t, db.Model(&models.Supplier{}).Count(&suppliers).Error)
	require.NoError(t, db.Model(&models.PortalUser{}).Count(&users).Error)
	assert.EqualValues(t, 3, dentists)
	assert.EqualValues(t, 5, suppliers)
	assert.EqualValues(t, 1, users)

	var admin models.PortalUser
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.CheckPassword("clinic2026"))
	assert.False(t, admin.CheckPassword("wrong"))
	assert.NotEmpty(t, admin.ID)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := modelstest.New(t)
	boom := errors.New("boom")

	err := models.WithTx(context.Background(), db, func(tx *gorm.DB) error {
		p := models.Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: "01-01-1990"}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Patient{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := modelstest.New(t)

	assert.Panics(t, func() {
		_ = models.WithTx(context.Background(), db, func(tx *gorm.DB) error {
			p := models.Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: "01-01-1990"}
			require.NoError(t, tx.Create(&p).Error)
			panic("driver exploded")
		})
	})

	var count int64
	require.NoError(t, db.Model(&models.Patient{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithTxCommits(t *testing.T) {
	db := modelstest.New(t)
	err := models.WithTx(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Create(&models.Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: "01-01-1990"}).Error
	})
	require.NoError(t, err)

	var p models.Patient
	require.NoError(t, db.First(&p).Error)
	assert.Equal(t, "Jane Doe", p.FullName())
}

func TestAppointmentDefaultsAndAudit(t *testing.T) {
	db := modelstest.New(t)
	p := modelstest.Patient(t, db, "Jane", "Doe", "01-01-1990", "0412345678")

	appt := models.Appointment{PatientID: p.PatientID, PreferredDate: "2026-03-05", PreferredTime: "15:00", PreferredDentist: "Dr. Emily Carter"}
	require.NoError(t, db.Create(&appt).Error)

	var stored models.Appointment
	require.NoError(t, db.First(&stored, appt.AppointmentID).Error)
	assert.Equal(t, models.StatusConfirmed, stored.Status)

	audit := models.AppointmentUpdate{AppointmentID: appt.AppointmentID, UpdatedFields: datatypes.JSONMap{"preferred_time": "16:00"}}
	require.NoError(t, db.Create(&audit).Error)

	var got models.AppointmentUpdate
	require.NoError(t, db.First(&got, audit.UpdateID).Error)
	assert.Equal(t, "16:00", got.UpdatedFields["preferred_time"])
}

func TestStatusValidity(t *testing.T) {
	assert.True(t, models.StatusCancelled.Valid())
	assert.False(t, models.AppointmentStatus("rescheduled").Valid())
	assert.True(t, models.ComplaintResolved.Valid())
	assert.False(t, models.OrderStatus("lost").Valid())
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	assert.True(t, models.RefreshToken{ExpiresAt: now.Add(time.Hour)}.Usable(now))
	assert.False(t, models.RefreshToken{ExpiresAt: now.Add(time.Hour), IsRevoked: true}.Usable(now))
	assert.False(t, models.RefreshToken{ExpiresAt: now.Add(-time.Hour)}.Usable(now))
}

func TestGormLoggerReportsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := models.NewGormLogger(zap.New(core))

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("bad"))
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("bad"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "query failed", logs.All()[0].Message)
}
