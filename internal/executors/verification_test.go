package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/models/modelstest"
)

func TestCreateAndVerifyPatient(t *testing.T) {
	ctx := context.Background()
	deps, mem := testDeps(t)
	ex := NewVerificationExecutor(deps)

	created := ex.CreatePatient(ctx, NewPatient{
		FirstName:     "john",
		LastName:      "o'brien",
		DateOfBirth:   "15/09/1990",
		ContactNumber: "0412 345 678",
	})
	require.Equal(t, StatusCreated, created.Status(), created.Message())
	assert.Equal(t, "John", created["first_name"])
	assert.Equal(t, "O'Brien", created["last_name"])
	assert.Equal(t, "15-09-1990", created["date_of_birth"])
	assert.Equal(t, "0412345678", created["contact_number"])
	assert.Equal(t, []string{events.PatientCreated}, mem.Types())

	verified := ex.VerifyByLastNameDOB(ctx, "O'BRIEN", "15th September 1990")
	require.Equal(t, StatusVerified, verified.Status())
	p := verified.Patient()
	require.NotNil(t, p)
	assert.Equal(t, created.Patient().PatientID, p.PatientID)
	assert.Equal(t, "John", p.FirstName)

	assert.Equal(t, StatusNotFound, ex.VerifyByLastNameDOB(ctx, "O'Brien", "16/09/1990").Status())
	assert.Equal(t, StatusMissingInfo, ex.VerifyByLastNameDOB(ctx, "", "16/09/1990").Status())
}

func TestCreatePatientRequiresDetails(t *testing.T) {
	deps, mem := testDeps(t)
	ex := NewVerificationExecutor(deps)

	res := ex.CreatePatient(context.Background(), NewPatient{FirstName: "Ana", DateOfBirth: "1 May 2001"})
	assert.Equal(t, StatusMissingInfo, res.Status())
	assert.Contains(t, res.Message(), "last name, contact number")
	assert.Empty(t, mem.Types())
}

func TestMultipleMatchesNeedContactNumber(t *testing.T) {
	ctx := context.Background()
	deps, _ := testDeps(t)
	ex := NewVerificationExecutor(deps)

	modelstest.Patient(t, deps.DB, "Alex", "Smith", "02-03-1985", "0400111222")
	modelstest.Patient(t, deps.DB, "Sam", "Smith", "02-03-1985", "0400333444")

	res := ex.VerifyByLastNameDOB(ctx, "smith", "2/3/1985")
	require.Equal(t, StatusMultipleFound, res.Status())
	assert.Equal(t, "Multiple records found. Please provide contact number.", res.Message())

	res = ex.VerifyByContact(ctx, "Smith", "2 March 1985", "0400 333 444")
	require.Equal(t, StatusVerified, res.Status())
	assert.Equal(t, "Sam", res["first_name"])

	assert.Equal(t, StatusNotFound, ex.VerifyByContact(ctx, "Smith", "2 March 1985", "0499999999").Status())
}

func TestPatientByID(t *testing.T) {
	ctx := context.Background()
	deps, _ := testDeps(t)
	ex := NewVerificationExecutor(deps)
	p := modelstest.Patient(t, deps.DB, "mia", "wong", "10-10-2010", "0411000000")

	res := ex.PatientByID(ctx, p.PatientID)
	require.Equal(t, StatusFound, res.Status())
	assert.Equal(t, "Mia", res["first_name"])
	assert.Equal(t, StatusNotFound, ex.PatientByID(ctx, 999).Status())
}
