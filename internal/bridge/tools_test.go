package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/models/modelstest"
	"dental-receptionist-server/internal/realtime"
	"dental-receptionist-server/internal/session"
)

// Monday 2 March 2026, 10:30
var fixedNow = time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	ex      *executors.Set
	tools   *Dispatcher
	patient models.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := modelstest.New(t)
	now := func() time.Time { return fixedNow }
	info := executors.NewInformationExecutor(nil, executors.LoadRules("", zap.NewNop()), nil)
	ex := executors.NewSet(executors.Deps{DB: db, Events: &events.Memory{}, Now: now}, info)
	return &fixture{
		db:      db,
		ex:      ex,
		tools:   NewDispatcher(ex, zap.NewNop(), now),
		patient: modelstest.Patient(t, db, "Jane", "Doe", "01-02-1990", "0412345678"),
	}
}

func (f *fixture) verified() *session.Session {
	s := session.New("test", fixedNow)
	p := f.patient
	s.Verify(&p)
	return s
}

func TestDispatcherCoversEveryTool(t *testing.T) {
	f := newFixture(t)
	var names []string
	for _, tool := range realtime.Tools() {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, names, f.tools.Names())
}

func TestDispatchUnknownFunction(t *testing.T) {
	f := newFixture(t)
	res := f.tools.Dispatch(context.Background(), session.New("x", fixedNow), "order_pizza", `{}`)
	assert.Equal(t, executors.Result{"error": "Unknown function: order_pizza"}, res)
}

func TestDispatchTurnsPanicIntoError(t *testing.T) {
	f := newFixture(t)
	f.ex.Appointments = nil

	res := f.tools.Dispatch(context.Background(), f.verified(), realtime.ToolGetMyAppointments, `{}`)
	assert.Equal(t, executors.StatusError, res.Status())
	assert.NotEmpty(t, res.Message())
}

func TestDispatchReportsDatabaseFailure(t *testing.T) {
	f := newFixture(t)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	ctx := context.Background()
	for _, name := range []string{realtime.ToolGetMyAppointments, realtime.ToolGetMyUpcomingAppointments} {
		res := f.tools.Dispatch(ctx, f.verified(), name, `{}`)
		assert.Equal(t, executors.StatusError, res.Status(), name)
		assert.NotEmpty(t, res.Message(), name)
	}
}

func TestBookSpokenAfternoonTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for spoken, want := range map[string]string{
		"3 in the afternoon": "15:00",
		"at 4pm":             "16:00",
		"2":                  "14:00",
	} {
		res := f.tools.Dispatch(ctx, f.verified(), realtime.ToolBookAppointment,
			`{"preferred_treatment":"Check-up","preferred_date":"next Thursday","preferred_time":"`+spoken+`","preferred_dentist":"Dr. Emily Carter"}`)
		require.Equal(t, executors.StatusBooked, res.Status(), "%s: %s", spoken, res.Message())
		assert.Equal(t, want, res["time"], spoken)
	}
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, Args{}, ParseArgs(""))
	assert.Equal(t, Args{}, ParseArgs("{not json"))
	assert.Equal(t, Args{}, ParseArgs("null"))

	args := ParseArgs(`{"appointment_index":"2","patient_id":7,"name":" Jane "}`)
	n, ok := args.Int("appointment_index")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, "7", args.String("patient_id"))
	assert.Equal(t, "Jane", args.String("name"))
	_, ok = args.Int("missing")
	assert.False(t, ok)
}

func TestVerifyExistingPatientMarksSessionVerified(t *testing.T) {
	f := newFixture(t)
	s := session.New("call", fixedNow)

	res := f.tools.Dispatch(context.Background(), s, realtime.ToolVerifyExistingPatient,
		`{"last_name":"doe","date_of_birth":"1st February 1990"}`)
	require.Equal(t, executors.StatusVerified, res.Status())
	assert.Equal(t, "Jane", res["first_name"])
	assert.Equal(t, "0 4 1 2 3 4 5 6 7 8", res["contact_spoken"])
	assert.True(t, s.Verified)
	assert.Equal(t, f.patient.PatientID, s.PatientID())

	res = f.tools.Dispatch(context.Background(), session.New("other", fixedNow), realtime.ToolVerifyExistingPatient,
		`{"last_name":"Nobody","date_of_birth":"01/02/1990"}`)
	assert.Equal(t, executors.StatusNotFound, res.Status())
}

func TestVerifyWithContactNumberReadsSpokenDigits(t *testing.T) {
	f := newFixture(t)
	s := session.New("call", fixedNow)

	res := f.tools.Dispatch(context.Background(), s, realtime.ToolVerifyWithContactNumber,
		`{"last_name":"Doe","date_of_birth":"01/02/1990","contact_number":"zero four one two three four five six seven eight"}`)
	require.Equal(t, executors.StatusVerified, res.Status())
	assert.True(t, s.Verified)

	res = f.tools.Dispatch(context.Background(), session.New("other", fixedNow), realtime.ToolVerifyWithContactNumber,
		`{"last_name":"Doe","date_of_birth":"01/02/1990","contact_number":"0499999999"}`)
	assert.Equal(t, executors.StatusNotFound, res.Status())
	assert.Equal(t, "Could not verify.", res.Message())
}

func TestCreateNewPatientVerifiesCaller(t *testing.T) {
	f := newFixture(t)
	s := session.New("call", fixedNow)

	res := f.tools.Dispatch(context.Background(), s, realtime.ToolCreateNewPatient,
		`{"first_name":"sam","last_name":"lee","date_of_birth":"3 April 1988","contact_number":"0400 111 222"}`)
	require.Equal(t, executors.StatusCreated, res.Status(), res.Message())
	assert.Equal(t, "Sam", res["first_name"])
	assert.True(t, s.Verified)

	res = f.tools.Dispatch(context.Background(), session.New("other", fixedNow), realtime.ToolCreateNewPatient, `{"first_name":"Ana"}`)
	assert.Equal(t, executors.StatusError, res.Status())
}

func TestPatientToolsRequireVerification(t *testing.T) {
	f := newFixture(t)
	s := session.New("call", fixedNow)
	ctx := context.Background()

	for _, name := range []string{
		realtime.ToolBookAppointment,
		realtime.ToolGetMyAppointments,
		realtime.ToolUpdateMyAppointment,
		realtime.ToolCancelMyAppointment,
		realtime.ToolGetMyOrderStatus,
		realtime.ToolGetMyUpcomingAppointments,
		realtime.ToolGetMyTreatmentHistory,
	} {
		res := f.tools.Dispatch(ctx, s, name, `{}`)
		assert.Equal(t, executors.StatusError, res.Status(), name)
	}
	res := f.tools.Dispatch(ctx, s, realtime.ToolBookAppointment, `{}`)
	assert.Equal(t, "Patient must be verified first.", res.Message())
}

func TestBookListAndCancelByIndex(t *testing.T) {
	f := newFixture(t)
	s := f.verified()
	ctx := context.Background()

	res := f.tools.Dispatch(ctx, s, realtime.ToolBookAppointment,
		`{"preferred_treatment":"Check-up","preferred_date":"next Thursday","preferred_time":"3pm","preferred_dentist":"Dr. Emily Carter"}`)
	require.Equal(t, executors.StatusBooked, res.Status(), res.Message())
	assert.Equal(t, "2026-03-05", res["date"])
	assert.Equal(t, "15:00", res["time"])

	res = f.tools.Dispatch(ctx, s, realtime.ToolCheckSlotAvailability,
		`{"date":"2026-03-05","time":"15:00","dentist_name":"Dr. Emily Carter"}`)
	assert.Equal(t, executors.StatusUnavailable, res.Status())

	res = f.tools.Dispatch(ctx, s, realtime.ToolGetMyAppointments, `{}`)
	require.Equal(t, executors.StatusSuccess, res.Status())
	assert.Equal(t, 1, res["count"])
	list := res["appointments"].([]indexedAppointment)
	assert.Equal(t, 1, list[0].Index)
	assert.Len(t, s.Appointments, 1)

	res = f.tools.Dispatch(ctx, s, realtime.ToolCancelMyAppointment, `{"appointment_index":3}`)
	assert.Equal(t, executors.StatusError, res.Status())
	assert.Equal(t, invalidIndex, res.Message())

	res = f.tools.Dispatch(ctx, s, realtime.ToolCancelMyAppointment, `{"appointment_index":1,"reason":"travelling"}`)
	require.Equal(t, executors.StatusCancelled, res.Status(), res.Message())
	assert.Empty(t, s.Appointments)

	var appt models.Appointment
	require.NoError(t, f.db.First(&appt).Error)
	assert.Equal(t, models.StatusCancelled, appt.Status)
}

func TestUpdateFetchesAppointmentsWhenNotListed(t *testing.T) {
	f := newFixture(t)
	s := f.verified()
	ctx := context.Background()

	booked := f.ex.Appointments.Book(ctx, executors.BookingRequest{
		PatientID: f.patient.PatientID, Treatment: "Check-up", Date: "2026-03-05", Time: "15:00", Dentist: "Dr. Emily Carter",
	})
	require.Equal(t, executors.StatusBooked, booked.Status(), booked.Message())

	res := f.tools.Dispatch(ctx, s, realtime.ToolUpdateMyAppointment, `{"new_time":"4pm"}`)
	require.Equal(t, executors.StatusUpdated, res.Status(), res.Message())
	assert.Equal(t, "16:00", res["time"])
	assert.Equal(t, "2026-03-05", res["date"])
	assert.Empty(t, s.Appointments)
}

func TestTreatmentComplaintNeedsVerifiedPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.tools.Dispatch(ctx, session.New("anon", fixedNow), realtime.ToolFileComplaint,
		`{"complaint_category":"treatment","complaint_text":"My filling fell out"}`)
	assert.Equal(t, executors.StatusError, res.Status())

	res = f.tools.Dispatch(ctx, f.verified(), realtime.ToolFileComplaint,
		`{"complaint_category":"treatment","complaint_text":"My filling fell out","treatment_name":"Filling","treatment_date":"a few weeks back"}`)
	require.Equal(t, executors.StatusSaved, res.Status(), res.Message())

	var c models.Complaint
	require.NoError(t, f.db.First(&c).Error)
	assert.Equal(t, models.ComplaintTreatment, c.ComplaintCategory)
	assert.Equal(t, "Jane Doe", c.PatientName)
	require.NotNil(t, c.PatientID)
	assert.Equal(t, f.patient.PatientID, *c.PatientID)
	assert.Contains(t, c.AdditionalInfo, "a few weeks back")
}

func TestGeneralComplaintUsesCallerDetails(t *testing.T) {
	f := newFixture(t)
	res := f.tools.Dispatch(context.Background(), session.New("anon", fixedNow), realtime.ToolFileComplaint,
		`{"complaint_category":"general","complaint_text":"Waited forty minutes","first_name":"Tom","last_name":"Hart","contact_number":"0400 123 456"}`)
	require.Equal(t, executors.StatusSaved, res.Status(), res.Message())

	var c models.Complaint
	require.NoError(t, f.db.First(&c).Error)
	assert.Equal(t, models.ComplaintGeneral, c.ComplaintCategory)
	assert.Equal(t, "Tom Hart", c.PatientName)
	assert.Equal(t, "0400123456", c.ContactNumber)
	assert.Nil(t, c.PatientID)
}

func TestInformationToolsWithoutAnswererFallBack(t *testing.T) {
	f := newFixture(t)
	s := session.New("call", fixedNow)

	res := f.tools.Dispatch(context.Background(), s, realtime.ToolGetBusinessInformation, `{"query":"are you open on Sunday"}`)
	assert.Equal(t, executors.StatusError, res.Status())
	assert.NotEmpty(t, res["response"])

	res = f.tools.Dispatch(context.Background(), s, realtime.ToolAnswerDentalQuestion, `{"query":""}`)
	assert.Equal(t, executors.SourceEmptyInput, res.Status())
	assert.Contains(t, res["response"], "repeat your question")
}

func TestSupplierContextCarriesAcrossTools(t *testing.T) {
	f := newFixture(t)
	s := session.New("call", fixedNow)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.Order{
		PatientID: f.patient.PatientID, FirstName: "Jane", LastName: "Doe", ProductName: "Porcelain Crown",
	}).Error)

	res := f.tools.Dispatch(ctx, s, realtime.ToolCheckKnownSupplier, `{"company_name":"AusDental"}`)
	require.Equal(t, executors.StatusFound, res.Status())
	assert.True(t, s.Supplier.Known)
	assert.Equal(t, "AusDental Labs Pty Ltd", s.Supplier.CompanyName)

	res = f.tools.Dispatch(ctx, s, realtime.ToolUpdateSupplierOrder, `{"product_name":"crown","patient_last_name":"Doe"}`)
	require.Equal(t, executors.StatusUpdated, res.Status(), res.Message())

	var o models.Order
	require.NoError(t, f.db.First(&o).Error)
	assert.Equal(t, models.OrderReady, o.OrderStatus)
	assert.Equal(t, "Supplier confirmed: AusDental Labs Pty Ltd", o.Notes)

	res = f.tools.Dispatch(ctx, s, realtime.ToolLogSupplierCall, `{"caller_name":"mike","purpose":"order_ready"}`)
	require.Equal(t, executors.StatusLogged, res.Status())
	assert.Equal(t, "Call from Mike (AusDental Labs Pty Ltd) logged.", res.Message())

	res = f.tools.Dispatch(ctx, s, realtime.ToolUpdateSupplierOrder, `{"product_name":"crown"}`)
	assert.Equal(t, "Need patient_id or patient_last_name.", res.Message())
}
