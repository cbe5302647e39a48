package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/archive"
	"dental-receptionist-server/internal/bridge"
	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/flows"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/models/modelstest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Monday 2 March 2026, 10:30
var fixedNow = time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type listData[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
	Limit int `json:"limit"`
}

type memArchive struct {
	mu          sync.Mutex
	transcripts []archive.Transcript
}

func (m *memArchive) Store(_ context.Context, t archive.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts = append(m.transcripts, t)
	return nil
}

func (m *memArchive) stored() []archive.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]archive.Transcript(nil), m.transcripts...)
}

type fixture struct {
	db      *gorm.DB
	events  *events.Memory
	archive *memArchive
	now     time.Time
	admin   models.PortalUser
	router  *gin.Engine
	convos  *ConversationHandler
}

func (f *fixture) clock() time.Time { return f.now }

// newFixture mounts the portal handlers without JWT checks. Requests run as
// the seeded admin.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:      modelstest.New(t),
		events:  &events.Memory{},
		archive: &memArchive{},
		now:     fixedNow,
	}
	log := zap.NewNop()

	f.admin = models.PortalUser{Username: "admin", DisplayName: "Clinic Admin", Role: models.RoleAdmin}
	require.NoError(t, f.admin.SetPassword("admin-password"))
	require.NoError(t, f.db.Create(&f.admin).Error)

	ex := executors.NewSet(executors.Deps{DB: f.db, Log: log, Events: f.events, Now: f.clock},
		executors.NewInformationExecutor(nil, executors.Rules{}, log))
	f.convos = NewConversationHandler(flows.NewRouter(ex, nil, flows.Clock(f.clock), log), f.archive, f.clock, log)

	appointments := NewAppointmentHandler(f.db, log)
	patients := NewPatientHandler(f.db, log)
	complaints := NewComplaintHandler(f.db, log)
	orders := NewOrderHandler(f.db, f.events, log)
	business := NewBusinessHandler(f.db, log)
	dashboard := NewDashboardHandler(f.db, f.clock, log)
	users := NewUserHandler(f.db, log)

	r := gin.New()
	r.POST("/conversations", f.convos.StartConversation)
	r.POST("/conversations/:id/messages", f.convos.SendMessage)

	api := r.Group("", func(c *gin.Context) {
		c.Set("userID", f.admin.ID)
		c.Set("userRole", f.admin.Role)
		c.Next()
	})
	api.GET("/dashboard", dashboard.GetDashboard)
	api.GET("/appointments", appointments.ListAppointments)
	api.PATCH("/appointments/:id/status", appointments.UpdateAppointmentStatus)
	api.GET("/patients", patients.ListPatients)
	api.GET("/patients/:id", patients.GetPatient)
	api.GET("/complaints", complaints.ListComplaints)
	api.PATCH("/complaints/:id/status", complaints.UpdateComplaintStatus)
	api.GET("/orders", orders.ListOrders)
	api.POST("/orders", orders.CreateOrder)
	api.PATCH("/orders/:id/status", orders.UpdateOrderStatus)
	api.GET("/business-logs", business.ListBusinessLogs)
	api.GET("/suppliers", business.ListSuppliers)
	api.GET("/users", users.GetUsers)
	api.POST("/users", users.CreateUser)
	api.DELETE("/users/:id", users.DeleteUser)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func testVoiceConfig() *config.Config {
	return &config.Config{Environment: "test", PublicWSSBase: "wss://clinic.example.com"}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (f *fixture) patient(t *testing.T, first, last string) models.Patient {
	return modelstest.Patient(t, f.db, first, last, "01-02-1990", "0412345678")
}

func (f *fixture) appointment(t *testing.T, p models.Patient, date, clock, dentist string, status models.AppointmentStatus) models.Appointment {
	t.Helper()
	a := models.Appointment{
		PatientID:          p.PatientID,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		DateOfBirth:        p.DateOfBirth,
		ContactNumber:      p.ContactNumber,
		PreferredTreatment: "Check-up",
		PreferredDate:      date,
		PreferredTime:      clock,
		PreferredDentist:   dentist,
		Status:             status,
	}
	require.NoError(t, f.db.Create(&a).Error)
	return a
}

func TestListAppointmentsFilters(t *testing.T) {
	f := newFixture(t)
	jane := f.patient(t, "Jane", "Doe")
	john := f.patient(t, "John", "Smith")
	f.appointment(t, jane, "2026-03-05", "15:00", "Dr. Emily Carter", models.StatusConfirmed)
	f.appointment(t, john, "2026-03-06", "09:00", "Dr. James Nguyen", models.StatusCancelled)

	tests := map[string][]string{
		"/appointments":                  {"Doe", "Smith"},
		"/appointments?dentist=emily":    {"Doe"},
		"/appointments?status=cancelled": {"Smith"},
		"/appointments?search=JANE":      {"Doe"},
		"/appointments?date=2026-03-06":  {"Smith"},
		"/appointments?search=nobody":    {},
	}
	for path, want := range tests {
		code, env := f.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, code, path)
		list := decode[listData[models.Appointment]](t, env.Data)
		got := make([]string, 0, len(list.Items))
		for _, a := range list.Items {
			got = append(got, a.LastName)
		}
		assert.ElementsMatch(t, want, got, path)
		assert.Equal(t, listLimit, list.Limit)
	}

	code, _ := f.do(t, http.MethodGet, "/appointments?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/appointments?date=05-03-2026", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateAppointmentStatus(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(t, f.patient(t, "Jane", "Doe"), "2026-03-05", "15:00", "Dr. Emily Carter", models.StatusConfirmed)

	code, env := f.do(t, http.MethodPatch, "/appointments/"+itoa(appt.AppointmentID)+"/status",
		gin.H{"status": "cancelled", "reason": "Patient is travelling"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, models.StatusCancelled, decode[models.Appointment](t, env.Data).Status)

	var cancellations []models.Cancellation
	require.NoError(t, f.db.Find(&cancellations).Error)
	require.Len(t, cancellations, 1)
	assert.Equal(t, appt.AppointmentID, cancellations[0].AppointmentID)
	assert.Equal(t, "Patient is travelling", cancellations[0].Reason)

	// Cancelling again records nothing new
	code, _ = f.do(t, http.MethodPatch, "/appointments/"+itoa(appt.AppointmentID)+"/status", gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code)
	var count int64
	f.db.Model(&models.Cancellation{}).Count(&count)
	assert.EqualValues(t, 1, count)

	code, _ = f.do(t, http.MethodPatch, "/appointments/999/status", gin.H{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodPatch, "/appointments/abc/status", gin.H{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPatch, "/appointments/"+itoa(appt.AppointmentID)+"/status", gin.H{"status": "postponed"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPatientsSearchAndDetail(t *testing.T) {
	f := newFixture(t)
	jane := f.patient(t, "Jane", "Doe")
	f.patient(t, "John", "Smith")
	f.appointment(t, jane, "2026-03-05", "15:00", "Dr. Emily Carter", models.StatusConfirmed)
	require.NoError(t, f.db.Create(&models.Order{
		PatientID: jane.PatientID, FirstName: "Jane", LastName: "Doe", ProductName: "Night guard", OrderStatus: models.OrderPlaced,
	}).Error)
	// Filed before the caller was verified, so only the name links it
	require.NoError(t, f.db.Create(&models.Complaint{
		ComplaintCategory: models.ComplaintGeneral, PatientName: "jane doe", ComplaintText: "Waited an hour", Status: models.ComplaintPending,
	}).Error)

	code, env := f.do(t, http.MethodGet, "/patients?search=smi", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[listData[models.Patient]](t, env.Data)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "John", list.Items[0].FirstName)

	code, env = f.do(t, http.MethodGet, "/patients?search=0412", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decode[listData[models.Patient]](t, env.Data).Count)

	code, env = f.do(t, http.MethodGet, "/patients/"+itoa(jane.PatientID), nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[PatientDetail](t, env.Data)
	assert.Equal(t, "Doe", detail.Patient.LastName)
	assert.Len(t, detail.Appointments, 1)
	assert.Len(t, detail.Orders, 1)
	require.Len(t, detail.Complaints, 1)
	assert.Equal(t, "Waited an hour", detail.Complaints[0].ComplaintText)

	code, _ = f.do(t, http.MethodGet, "/patients/404", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestComplaintsFilterAndStatus(t *testing.T) {
	f := newFixture(t)
	general := models.Complaint{ComplaintCategory: models.ComplaintGeneral, PatientName: "Jane Doe", ComplaintText: "Rude call", Status: models.ComplaintPending}
	treatment := models.Complaint{ComplaintCategory: models.ComplaintTreatment, PatientName: "John Smith", ComplaintText: "Filling fell out", Status: models.ComplaintReviewed}
	require.NoError(t, f.db.Create(&general).Error)
	require.NoError(t, f.db.Create(&treatment).Error)

	code, env := f.do(t, http.MethodGet, "/complaints?category=treatment", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[listData[models.Complaint]](t, env.Data)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "John Smith", list.Items[0].PatientName)

	code, env = f.do(t, http.MethodGet, "/complaints?status=pending&search=jane", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[listData[models.Complaint]](t, env.Data).Count)

	code, env = f.do(t, http.MethodPatch, "/complaints/"+itoa(general.ComplaintID)+"/status", gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var stored models.Complaint
	require.NoError(t, f.db.First(&stored, general.ComplaintID).Error)
	assert.Equal(t, models.ComplaintResolved, stored.Status)

	code, _ = f.do(t, http.MethodPatch, "/complaints/999/status", gin.H{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, "/complaints?category=billing", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	jane := f.patient(t, "Jane", "Doe")

	code, env := f.do(t, http.MethodPost, "/orders", gin.H{"patientId": jane.PatientID, "productName": " Porcelain Crown "})
	require.Equal(t, http.StatusCreated, code, env.Error)
	order := decode[models.Order](t, env.Data)
	assert.Equal(t, "Porcelain Crown", order.ProductName)
	assert.Equal(t, models.OrderPlaced, order.OrderStatus)
	assert.Equal(t, "admin", order.PlacedBy)
	assert.Equal(t, "0412345678", order.ContactNumber)

	code, env = f.do(t, http.MethodGet, "/orders?search=crown", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[listData[models.Order]](t, env.Data).Count)

	code, env = f.do(t, http.MethodPatch, "/orders/"+itoa(order.OrderID)+"/status", gin.H{"status": "ready", "notes": "Shelf B"})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.Order](t, env.Data)
	assert.Equal(t, models.OrderReady, updated.OrderStatus)
	assert.Equal(t, "Shelf B", updated.Notes)
	assert.Equal(t, []string{events.OrderReady}, f.events.Types())

	code, env = f.do(t, http.MethodGet, "/orders?status=ready", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[listData[models.Order]](t, env.Data).Count)

	code, _ = f.do(t, http.MethodPost, "/orders", gin.H{"patientId": 999, "productName": "Retainer"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodPost, "/orders", gin.H{"patientId": jane.PatientID})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPatch, "/orders/"+itoa(order.OrderID)+"/status", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBusinessLogsAndSuppliers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.BusinessLog{
		CallerName: "Mike", CompanyName: "AusDental Labs Pty Ltd", Purpose: models.PurposeOrderReady, FullCallNotes: "{}",
	}).Error)
	require.NoError(t, f.db.Create(&models.BusinessLog{
		CallerName: "Priya", CompanyName: "Bright Smiles Marketing", Purpose: models.PurposePromotion, FullCallNotes: "{}",
	}).Error)

	code, env := f.do(t, http.MethodGet, "/business-logs?purpose=order_ready", nil)
	require.Equal(t, http.StatusOK, code)
	logs := decode[listData[models.BusinessLog]](t, env.Data)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, "Mike", logs.Items[0].CallerName)

	code, env = f.do(t, http.MethodGet, "/business-logs?search=bright", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[listData[models.BusinessLog]](t, env.Data).Count)

	code, env = f.do(t, http.MethodGet, "/suppliers", nil)
	require.Equal(t, http.StatusOK, code)
	suppliers := decode[listData[models.Supplier]](t, env.Data)
	assert.Equal(t, 5, suppliers.Count)
	assert.Equal(t, "AusDental Labs Pty Ltd", suppliers.Items[0].CompanyName)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	jane := f.patient(t, "Jane", "Doe")
	f.appointment(t, jane, "2026-03-02", "14:00", "Dr. Emily Carter", models.StatusConfirmed)
	f.appointment(t, jane, "2026-03-02", "09:00", "Dr. James Nguyen", models.StatusPending)
	f.appointment(t, jane, "2026-03-02", "11:00", "Dr. Sarah Mitchell", models.StatusCancelled)
	f.appointment(t, jane, "2026-03-09", "10:00", "Dr. Emily Carter", models.StatusConfirmed)
	require.NoError(t, f.db.Create(&models.Complaint{ComplaintCategory: models.ComplaintGeneral, PatientName: "Jane Doe", ComplaintText: "Cold room", Status: models.ComplaintPending}).Error)
	require.NoError(t, f.db.Create(&models.Order{PatientID: jane.PatientID, ProductName: "Retainer", OrderStatus: models.OrderReady}).Error)
	require.NoError(t, f.db.Create(&models.Order{PatientID: jane.PatientID, ProductName: "Night guard", OrderStatus: models.OrderPlaced}).Error)

	code, env := f.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	d := decode[Dashboard](t, env.Data)

	assert.Equal(t, "2026-03-02", d.Date)
	assert.Equal(t, DashboardCounts{
		Patients:           1,
		ActiveAppointments: 3,
		TodayAppointments:  2,
		PendingComplaints:  1,
		ReadyOrders:        1,
	}, d.Counts)
	require.Len(t, d.TodayAppointments, 2)
	assert.Equal(t, "09:00", d.TodayAppointments[0].PreferredTime)
	assert.Len(t, d.PendingComplaints, 1)
	require.Len(t, d.ReadyOrders, 1)
	assert.Equal(t, "Retainer", d.ReadyOrders[0].ProductName)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/users", gin.H{"username": "reception", "password": "front-desk-1", "role": "staff"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	created := decode[models.PortalUserSanitized](t, env.Data)
	assert.Equal(t, models.RoleStaff, created.Role)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = f.do(t, http.MethodPost, "/users", gin.H{"username": "reception", "password": "front-desk-2", "role": "staff"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = f.do(t, http.MethodPost, "/users", gin.H{"username": "dentist", "password": "short", "role": "staff"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = f.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.PortalUserSanitized](t, env.Data), 2)

	code, _ = f.do(t, http.MethodDelete, "/users/"+f.admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	require.NoError(t, f.db.Create(&models.RefreshToken{UserID: created.ID, Token: "t", ExpiresAt: fixedNow.Add(time.Hour)}).Error)
	code, _ = f.do(t, http.MethodDelete, "/users/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var tokens int64
	f.db.Model(&models.RefreshToken{}).Where("user_id = ?", created.ID).Count(&tokens)
	assert.Zero(t, tokens)

	code, _ = f.do(t, http.MethodDelete, "/users/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConversationTurnsAndExpiry(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/conversations", nil)
	require.Equal(t, http.StatusCreated, code)
	started := decode[map[string]string](t, env.Data)
	id := started["conversationId"]
	require.NotEmpty(t, id)
	assert.Equal(t, textGreeting, started["response"])

	code, env = f.do(t, http.MethodPost, "/conversations/"+id+"/messages", gin.H{"text": "I'd like to book a check-up"})
	require.Equal(t, http.StatusOK, code, env.Error)
	reply := decode[map[string]any](t, env.Data)
	assert.NotEmpty(t, reply["response"])
	assert.Equal(t, id, reply["conversationId"])

	code, _ = f.do(t, http.MethodPost, "/conversations/"+id+"/messages", gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPost, "/conversations/unknown/messages", gin.H{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, code)

	f.now = f.now.Add(DefaultConversationTTL + time.Minute)
	code, _ = f.do(t, http.MethodPost, "/conversations/"+id+"/messages", gin.H{"text": "are you there?"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Zero(t, f.convos.Active())

	stored := f.archive.stored()
	require.Len(t, stored, 1)
	// greeting, the booking request and its reply
	assert.Len(t, stored[0].Turns, 3)
	assert.Equal(t, models.TranscriptAssistant, stored[0].Turns[0].Role)
}

func TestCloseArchivesOpenConversations(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		code, _ := f.do(t, http.MethodPost, "/conversations", nil)
		require.Equal(t, http.StatusCreated, code)
	}
	require.Equal(t, 2, f.convos.Active())

	f.convos.Close(context.Background())

	assert.Zero(t, f.convos.Active())
	stored := f.archive.stored()
	require.Len(t, stored, 2)
	for _, tr := range stored {
		assert.Equal(t, fixedNow, tr.EndedAt)
		require.Len(t, tr.Turns, 1)
		assert.Equal(t, textGreeting, tr.Turns[0].Content)
	}
}

func TestMediaStreamCallEndsWithServerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialed := make(chan struct{})
	dial := func(callCtx context.Context) (bridge.ModelConn, error) {
		close(dialed)
		<-callCtx.Done()
		return nil, callCtx.Err()
	}
	h := NewVoiceHandler(ctx, testVoiceConfig(), nil, dial, zap.NewNop())
	r := gin.New()
	r.GET("/media-stream", h.MediaStream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/media-stream", nil)
	require.NoError(t, err)
	defer ws.Close()

	select {
	case <-dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("speech model was never dialed")
	}

	// The call outlives its upgrade request.
	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, h.Wait(short), context.DeadlineExceeded)

	cancel()
	long, cancelLong := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelLong()
	require.NoError(t, h.Wait(long))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err, "phone socket should be closed once the call ends")
}

func TestIncomingCallReturnsStreamTwiML(t *testing.T) {
	h := NewVoiceHandler(context.Background(), testVoiceConfig(), nil, nil, zap.NewNop())
	r := gin.New()
	r.POST("/voice", h.IncomingCall)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/voice", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `<Stream url="wss://clinic.example.com/media-stream">`)
	assert.Contains(t, w.Body.String(), "<Connect>")
}

func TestMediaStreamRejectsPlainHTTP(t *testing.T) {
	h := NewVoiceHandler(context.Background(), testVoiceConfig(), nil, nil, zap.NewNop())
	r := gin.New()
	r.GET("/media-stream", h.MediaStream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media-stream", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
