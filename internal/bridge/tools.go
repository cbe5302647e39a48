package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"dental-receptionist-server/internal/executors"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
	"dental-receptionist-server/internal/realtime"
	"dental-receptionist-server/internal/session"
)

// Args are the decoded arguments of a function call.
type Args map[string]any

// ParseArgs decodes the model's argument string. Anything unparsable is
// treated as no arguments.
func ParseArgs(raw string) Args {
	args := Args{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return Args{}
	}
	return args
}

// String returns a string argument. Numbers are formatted without decimals.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Int returns an integer argument given as a number or digit string.
func (a Args) Int(key string) (int, bool) {
	switch v := a[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

type tool func(ctx context.Context, s *session.Session, args Args) executors.Result

// Dispatcher runs the model's function calls against the executors.
type Dispatcher struct {
	ex    *executors.Set
	log   *zap.Logger
	now   func() time.Time
	tools map[string]tool
}

func NewDispatcher(ex *executors.Set, log *zap.Logger, now func() time.Time) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	d := &Dispatcher{ex: ex, log: log.Named("tools"), now: now}
	d.tools = map[string]tool{
		realtime.ToolVerifyExistingPatient:     d.verifyExistingPatient,
		realtime.ToolVerifyWithContactNumber:   d.verifyWithContactNumber,
		realtime.ToolCreateNewPatient:          d.createNewPatient,
		realtime.ToolCheckSlotAvailability:     d.checkSlotAvailability,
		realtime.ToolFindAnyAvailableDentist:   d.findAnyAvailableDentist,
		realtime.ToolBookAppointment:           patientOnly(d.bookAppointment, "Patient must be verified first."),
		realtime.ToolGetMyAppointments:         patientOnly(d.getMyAppointments, notVerified),
		realtime.ToolUpdateMyAppointment:       patientOnly(d.updateMyAppointment, notVerified),
		realtime.ToolCancelMyAppointment:       patientOnly(d.cancelMyAppointment, notVerified),
		realtime.ToolFileComplaint:             d.fileComplaint,
		realtime.ToolGetBusinessInformation:    d.information(d.ex.Information.BusinessInfo),
		realtime.ToolGetInsuranceInformation:   d.information(d.ex.Information.Insurance),
		realtime.ToolGetWarrantyInformation:    d.information(d.ex.Information.Warranty),
		realtime.ToolAnswerDentalQuestion:      d.answerDentalQuestion,
		realtime.ToolGetMyOrderStatus:          patientOnly(d.getMyOrderStatus, notVerified),
		realtime.ToolGetMyUpcomingAppointments: patientOnly(d.getMyUpcomingAppointments, notVerified),
		realtime.ToolGetMyTreatmentHistory:     patientOnly(d.getMyTreatmentHistory, notVerified),
		realtime.ToolCheckKnownSupplier:        d.checkKnownSupplier,
		realtime.ToolUpdateSupplierOrder:       d.updateSupplierOrder,
		realtime.ToolLogSupplierCall:           d.logSupplierCall,
	}
	return d
}

// Names lists the tools the dispatcher can run.
func (d *Dispatcher) Names() []string {
	return lo.Keys(d.tools)
}

// Dispatch runs one function call. It never fails: unknown tools, executor
// errors and panics all come back as a result for the model to speak about.
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, name, rawArgs string) (res executors.Result) {
	fn, ok := d.tools[name]
	if !ok {
		d.log.Warn("unknown function", zap.String("function", name))
		return executors.Result{"error": "Unknown function: " + name}
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("function panicked", zap.String("function", name), zap.Any("panic", r), zap.Stack("stack"))
			res = executors.Result{"status": executors.StatusError, "message": fmt.Sprint(r)}
		}
	}()

	args := ParseArgs(rawArgs)
	start := time.Now()
	res = fn(ctx, s, args)
	d.log.Info("function call",
		zap.String("function", name),
		zap.String("status", res.Status()),
		zap.Duration("took", time.Since(start)),
	)
	return res
}

const notVerified = "Patient not verified."

func errorResult(message string) executors.Result {
	return executors.Result{"status": executors.StatusError, "message": message}
}

// patientOnly gates a tool on a verified caller.
func patientOnly(fn tool, message string) tool {
	return func(ctx context.Context, s *session.Session, args Args) executors.Result {
		if !s.Verified || s.Patient == nil {
			return errorResult(message)
		}
		return fn(ctx, s, args)
	}
}

// Verification

func (d *Dispatcher) verifyExistingPatient(ctx context.Context, s *session.Session, args Args) executors.Result {
	r := d.ex.Verification.VerifyByLastNameDOB(ctx, args.String("last_name"), args.String("date_of_birth"))
	switch r.Status() {
	case executors.StatusVerified:
		p := r.Patient()
		s.Verify(p)
		return executors.Result{
			"status":         executors.StatusVerified,
			"first_name":     p.FirstName,
			"last_name":      p.LastName,
			"date_of_birth":  p.DateOfBirth,
			"contact_spoken": parse.PhoneForSpeech(p.ContactNumber),
		}
	case executors.StatusMultipleFound, executors.StatusError:
		return executors.Result{"status": r.Status(), "message": r.Message()}
	}
	return executors.Result{"status": executors.StatusNotFound, "message": lo.CoalesceOrEmpty(r.Message(), "No account found.")}
}

func (d *Dispatcher) verifyWithContactNumber(ctx context.Context, s *session.Session, args Args) executors.Result {
	phone := parse.ExtractPhone(args.String("contact_number"))
	r := d.ex.Verification.VerifyByContact(ctx, args.String("last_name"), args.String("date_of_birth"), phone)
	if r.Is(executors.StatusVerified) {
		p := r.Patient()
		s.Verify(p)
		return executors.Result{"status": executors.StatusVerified, "first_name": p.FirstName, "last_name": p.LastName}
	}
	if r.Is(executors.StatusError) {
		return r
	}
	return executors.Result{"status": executors.StatusNotFound, "message": lo.CoalesceOrEmpty(r.Message(), "Could not verify.")}
}

func (d *Dispatcher) createNewPatient(ctx context.Context, s *session.Session, args Args) executors.Result {
	r := d.ex.Verification.CreatePatient(ctx, executors.NewPatient{
		FirstName:     args.String("first_name"),
		LastName:      args.String("last_name"),
		DateOfBirth:   args.String("date_of_birth"),
		ContactNumber: parse.ExtractPhone(args.String("contact_number")),
		InsuranceInfo: args.String("insurance_info"),
	})
	if !r.Is(executors.StatusCreated) {
		return errorResult(lo.CoalesceOrEmpty(r.Message(), "Could not create account."))
	}
	p := r.Patient()
	s.Verify(p)
	return executors.Result{
		"status":     executors.StatusCreated,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"message":    r.Message(),
	}
}

// Appointments

func (d *Dispatcher) checkSlotAvailability(ctx context.Context, _ *session.Session, args Args) executors.Result {
	return d.ex.Appointments.CheckAvailability(ctx, args.String("date"), args.String("time"), args.String("dentist_name"))
}

func (d *Dispatcher) findAnyAvailableDentist(ctx context.Context, _ *session.Session, args Args) executors.Result {
	return d.ex.Appointments.FindAvailableDentist(ctx, args.String("date"), args.String("time"))
}

func (d *Dispatcher) bookAppointment(ctx context.Context, s *session.Session, args Args) executors.Result {
	r := d.ex.Appointments.Book(ctx, executors.BookingRequest{
		PatientID: s.PatientID(),
		Treatment: args.String("preferred_treatment"),
		Date:      args.String("preferred_date"),
		Time:      args.String("preferred_time"),
		Dentist:   args.String("preferred_dentist"),
	})
	if !r.Is(executors.StatusBooked) {
		return r
	}
	return executors.Result{
		"status":    executors.StatusBooked,
		"treatment": r["treatment"],
		"date":      r["date"],
		"time":      r["time"],
		"dentist":   r["dentist"],
	}
}

type indexedAppointment struct {
	Index int `json:"index"`
	executors.AppointmentSummary
}

func (d *Dispatcher) getMyAppointments(ctx context.Context, s *session.Session, _ Args) executors.Result {
	r := d.ex.Appointments.ListForPatient(ctx, s.PatientID())
	if !r.Is(executors.StatusSuccess) {
		return r
	}
	appts := r.Summaries()
	s.Appointments = appts
	return executors.Result{
		"status": executors.StatusSuccess,
		"appointments": lo.Map(appts, func(a executors.AppointmentSummary, i int) indexedAppointment {
			return indexedAppointment{Index: i + 1, AppointmentSummary: a}
		}),
		"count": len(appts),
	}
}

// selected resolves appointment_index against the list the caller heard,
// fetching it first if this call has not listed appointments yet.
func (d *Dispatcher) selected(ctx context.Context, s *session.Session, args Args) (executors.AppointmentSummary, bool) {
	if len(s.Appointments) == 0 {
		if r := d.ex.Appointments.ListForPatient(ctx, s.PatientID()); r.Is(executors.StatusSuccess) {
			s.Appointments = r.Summaries()
		}
	}
	idx, ok := args.Int("appointment_index")
	if !ok {
		idx = 1
	}
	return s.AppointmentAt(idx)
}

const invalidIndex = "Invalid index. Call get_my_appointments first."

func (d *Dispatcher) updateMyAppointment(ctx context.Context, s *session.Session, args Args) executors.Result {
	a, ok := d.selected(ctx, s, args)
	if !ok {
		return errorResult(invalidIndex)
	}
	r := d.ex.Appointments.Update(ctx, a.ID, executors.Changes{
		Treatment: args.String("new_treatment"),
		Date:      args.String("new_date"),
		Time:      args.String("new_time"),
		Dentist:   args.String("new_dentist"),
	})
	if !r.Is(executors.StatusUpdated) {
		return r
	}
	s.Appointments = nil
	return executors.Result{
		"status":    executors.StatusUpdated,
		"treatment": r["treatment"],
		"date":      r["date"],
		"time":      r["time"],
		"dentist":   r["dentist"],
	}
}

func (d *Dispatcher) cancelMyAppointment(ctx context.Context, s *session.Session, args Args) executors.Result {
	a, ok := d.selected(ctx, s, args)
	if !ok {
		return errorResult(invalidIndex)
	}
	r := d.ex.Appointments.Cancel(ctx, a.ID, args.String("reason"))
	if r.Is(executors.StatusCancelled) {
		s.Appointments = nil
	}
	return r
}

func (d *Dispatcher) getMyUpcomingAppointments(ctx context.Context, s *session.Session, _ Args) executors.Result {
	r := d.ex.Appointments.Upcoming(ctx, s.PatientID())
	if !r.Is(executors.StatusSuccess) {
		return r
	}
	r["appointments"] = lo.Map(r.Summaries(), func(a executors.AppointmentSummary, _ int) executors.AppointmentSummary {
		a.Status = ""
		return a
	})
	return r
}

func (d *Dispatcher) getMyTreatmentHistory(ctx context.Context, s *session.Session, _ Args) executors.Result {
	return d.ex.Appointments.History(ctx, s.PatientID(), 5)
}

// Complaints

func (d *Dispatcher) fileComplaint(ctx context.Context, s *session.Session, args Args) executors.Result {
	req := executors.ComplaintRequest{
		Category:       args.String("complaint_category"),
		Text:           args.String("complaint_text"),
		AdditionalInfo: args.String("additional_info"),
	}

	if executors.NormalizeCategory(req.Category) == models.ComplaintTreatment {
		if !s.Verified || s.Patient == nil {
			return errorResult("Patient must be verified for a treatment complaint.")
		}
		p := s.Patient
		id := p.PatientID
		req.PatientID = &id
		req.PatientName = p.FullName()
		req.ContactNumber = p.ContactNumber
		req.DateOfBirth = p.DateOfBirth
		req.TreatmentName = args.String("treatment_name")
		req.DentistName = args.String("dentist_name")
		req.TreatmentTime = args.String("treatment_time")
		if n, ok := args.Int("appointment_id"); ok && n > 0 {
			apptID := uint(n)
			req.AppointmentID = &apptID
		}
		if raw := args.String("treatment_date"); raw != "" {
			if date := parse.Date(raw, d.now()); parse.IsISODate(date) {
				req.TreatmentDate = date
			} else {
				req.AdditionalInfo = strings.TrimSpace(req.AdditionalInfo + " Treatment date given as: " + raw)
			}
		}
	} else {
		req.PatientName = strings.TrimSpace(args.String("first_name") + " " + args.String("last_name"))
		req.ContactNumber = parse.ExtractPhone(args.String("contact_number"))
	}

	r := d.ex.Complaints.Save(ctx, req)
	if !r.Is(executors.StatusSaved) {
		return r
	}
	return executors.Result{"status": executors.StatusSaved, "message": r.Message()}
}

// Information

type answerFunc func(ctx context.Context, query string, who executors.Asker) executors.Result

func (d *Dispatcher) information(answer answerFunc) tool {
	return func(ctx context.Context, s *session.Session, args Args) executors.Result {
		r := answer(ctx, args.String("query"), s.Asker())
		return executors.Result{
			"status":   lo.CoalesceOrEmpty(r.Status(), executors.StatusSuccess),
			"response": r.String("response"),
		}
	}
}

func (d *Dispatcher) answerDentalQuestion(ctx context.Context, s *session.Session, args Args) executors.Result {
	r := d.ex.Information.AnswerDentalQuestion(ctx, args.String("query"), s.Asker())
	return executors.Result{
		"status":   lo.CoalesceOrEmpty(r.String("source"), executors.SourceKB),
		"response": r.String("response"),
	}
}

func (d *Dispatcher) getMyOrderStatus(ctx context.Context, s *session.Session, _ Args) executors.Result {
	return d.ex.Business.OrdersForPatient(ctx, s.PatientID())
}

// Suppliers

func (d *Dispatcher) checkKnownSupplier(ctx context.Context, s *session.Session, args Args) executors.Result {
	r := d.ex.Business.CheckSupplier(ctx, args.String("company_name"))
	if r.Is(executors.StatusFound) {
		s.Supplier.CompanyName = r.String("company_name")
		s.Supplier.Known = true
		return r
	}
	s.Supplier.Known = false
	return executors.Result{"status": lo.CoalesceOrEmpty(r.Status(), executors.StatusNotFound), "message": r.Message()}
}

func (d *Dispatcher) updateSupplierOrder(ctx context.Context, s *session.Session, args Args) executors.Result {
	product := args.String("product_name")
	notes := "Supplier confirmed"
	if s.Supplier.CompanyName != "" {
		notes += ": " + s.Supplier.CompanyName
	}

	if id, ok := args.Int("patient_id"); ok && id > 0 {
		return d.ex.Business.UpdateOrderByPatientID(ctx, uint(id), product, models.OrderReady, notes)
	}
	if last := args.String("patient_last_name"); last != "" {
		return d.ex.Business.UpdateOrderByPatientName(ctx, last, product, models.OrderReady, notes)
	}
	return errorResult("Need patient_id or patient_last_name.")
}

func (d *Dispatcher) logSupplierCall(ctx context.Context, s *session.Session, args Args) executors.Result {
	sup := &s.Supplier
	if v := args.String("caller_name"); v != "" {
		sup.CallerName = v
	}
	if v := args.String("company_name"); v != "" {
		sup.CompanyName = v
	}
	if v := args.String("contact_number"); v != "" {
		sup.ContactNumber = v
	}

	notes, _ := json.Marshal(args)
	return d.ex.Business.LogCall(ctx, executors.BusinessCall{
		CallerName:    sup.CallerName,
		CompanyName:   sup.CompanyName,
		ContactNumber: sup.ContactNumber,
		Purpose:       args.String("purpose"),
		Notes:         string(notes),
	})
}
