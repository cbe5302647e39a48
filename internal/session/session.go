// Package session holds the per-call conversation context. A Session is
// created when a call or text conversation starts and discarded when it ends.
package session

import (
	"sync"
	"time"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
)

// Flow names
const (
	FlowNone         = ""
	FlowBooking      = "booking"
	FlowUpdateCancel = "update_cancel"
	FlowComplaint    = "complaint"
	FlowVerification = "verification"
	FlowBusiness     = "business"
)

// Turn is one line of the conversation.
type Turn struct {
	Role      models.TranscriptRole `json:"role"`
	Content   string                `json:"content"`
	Timestamp time.Time             `json:"timestamp"`
}

// SupplierContext is what a business caller has told us so far.
type SupplierContext struct {
	CallerName    string
	CompanyName   string
	ContactNumber string
	Known         bool
}

// BookingState is the scratch state of the booking flow.
type BookingState struct {
	Step      string
	Treatment string
	Date      string
	Time      string
	Dentist   string

	// offered alternative when the requested slot is taken
	AltDate    string
	AltTime    string
	AltDentist string
}

// UpdateCancelState is the scratch state of the update/cancel flow.
type UpdateCancelState struct {
	Step     string
	Selected *executors.AppointmentSummary
	Action   string
}

// ComplaintState is the scratch state of the complaint flow.
type ComplaintState struct {
	Step          string
	Category      models.ComplaintCategory
	Text          string
	TreatmentName string
	DentistName   string
	TreatmentDate string
}

// VerificationState is the scratch state of the verification flow.
type VerificationState struct {
	Step     string
	LastName string
	DOB      string
	// Candidate is the record found but not yet confirmed by the caller.
	Candidate *models.Patient

	NewFirstName string
	NewLastName  string
	NewDOB       string
	NewContact   string

	// Resume is the flow to start once the caller is verified.
	Resume      string
	ResumeInput string
}

// Session is the context of one call or text conversation.
type Session struct {
	ID        string
	CallSID   string
	StreamSID string
	CreatedAt time.Time

	Verified bool
	Patient  *models.Patient

	Flow         string
	Appointments []executors.AppointmentSummary
	Supplier     SupplierContext

	Booking      BookingState
	UpdateCancel UpdateCancelState
	Complaint    ComplaintState
	Verification VerificationState

	mu      sync.Mutex
	history []Turn
}

// New starts an empty session.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

// AddTurn appends a line to the history. Safe for concurrent use.
func (s *Session) AddTurn(role models.TranscriptRole, content string, at time.Time) {
	if content == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Content: content, Timestamp: at})
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// Recent renders the last n turns as "role: content" lines.
func (s *Session) Recent(n int) []string {
	h := s.History()
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]string, len(h))
	for i, t := range h {
		out[i] = string(t.Role) + ": " + t.Content
	}
	return out
}

// Verify records the verified patient.
func (s *Session) Verify(p *models.Patient) {
	s.Patient = p
	s.Verified = p != nil
}

// FirstName of the verified patient, or "".
func (s *Session) FirstName() string {
	if s.Patient == nil {
		return ""
	}
	return s.Patient.FirstName
}

// PatientID of the verified patient, or 0.
func (s *Session) PatientID() uint {
	if !s.Verified || s.Patient == nil {
		return 0
	}
	return s.Patient.PatientID
}

// Asker describes the caller for the information answers.
func (s *Session) Asker() executors.Asker {
	return executors.Asker{FirstName: s.FirstName(), Recent: s.Recent(6)}
}

// AppointmentAt returns a fetched appointment by its 1-based position.
func (s *Session) AppointmentAt(index int) (executors.AppointmentSummary, bool) {
	if index < 1 || index > len(s.Appointments) {
		return executors.AppointmentSummary{}, false
	}
	return s.Appointments[index-1], true
}

// EndFlow clears the active flow and all flow scratch state.
func (s *Session) EndFlow() {
	s.Flow = FlowNone
	s.Booking = BookingState{}
	s.UpdateCancel = UpdateCancelState{}
	s.Complaint = ComplaintState{}
	s.Verification = VerificationState{}
}
