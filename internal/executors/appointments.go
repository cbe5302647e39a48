package executors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
)

var errSlotTaken = errors.New("slot already booked")

// AppointmentSummary is the view of an appointment read back to a patient.
// The id stays internal and is never spoken.
type AppointmentSummary struct {
	ID        uint   `json:"-"`
	Treatment string `json:"treatment"`
	Date      string `json:"date"`
	Time      string `json:"time,omitempty"`
	Dentist   string `json:"dentist"`
	Status    string `json:"status,omitempty"`
}

// BookingRequest carries the patient and the four booking fields.
type BookingRequest struct {
	PatientID uint
	Treatment string
	Date      string
	Time      string
	Dentist   string
}

// Changes lists the appointment fields a patient wants to change. Empty
// fields are left alone.
type Changes struct {
	Treatment string
	Date      string
	Time      string
	Dentist   string
}

func (c Changes) empty() bool {
	return c.Treatment == "" && c.Date == "" && c.Time == "" && c.Dentist == ""
}

// AppointmentExecutor checks slots and books, lists, updates and cancels
// appointments.
type AppointmentExecutor struct {
	base
}

func NewAppointmentExecutor(d Deps) *AppointmentExecutor {
	return &AppointmentExecutor{base: newBase(d, "appointments")}
}

// IsAnyDentist reports whether a dentist preference means "whoever is free".
func IsAnyDentist(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "any", "anyone", "any dentist", "whoever", "no preference", "any available":
		return true
	}
	return false
}

// slotRequest is a validated date and time.
type slotRequest struct {
	date string
	time string
	day  time.Time
}

// validateSlot parses a spoken date and time and checks them against the
// calendar and opening hours. A non-nil Result is an INVALID answer.
func (e *AppointmentExecutor) validateSlot(dateStr, timeStr string) (slotRequest, Result) {
	now := e.now()
	date := parse.Date(dateStr, now)
	tm := parse.Time(timeStr)

	if !parse.IsISODate(date) {
		return slotRequest{}, statusResult(StatusInvalid,
			fmt.Sprintf("I couldn't understand the date %q. Could you say it another way, like 'next Monday' or '20 March'?", dateStr))
	}
	if !parse.IsClockTime(tm) {
		return slotRequest{}, statusResult(StatusInvalid,
			fmt.Sprintf("I couldn't understand the time %q. Could you say it another way, like '10 am' or '2:30 pm'?", timeStr))
	}

	day, _ := time.ParseInLocation(parse.DateLayout, date, now.Location())
	today := parse.StartOfDay(now)
	if day.Before(today) {
		return slotRequest{}, statusResult(StatusInvalid, "That date has already passed. Could you choose a date from today onwards?")
	}
	if closed, reason := parse.IsClinicClosed(day); closed {
		return slotRequest{}, statusResult(StatusInvalid, reason)
	}
	if !parse.WithinClinicHours(tm) {
		return slotRequest{}, statusResult(StatusInvalid, "Our hours are 9 AM to 6 PM, Monday to Friday. Could you choose a time in that window?")
	}
	if day.Equal(today) && tm <= now.Format(parse.TimeLayout) {
		return slotRequest{}, statusResult(StatusInvalid, "That time has already passed today. Could you choose a later time?")
	}
	return slotRequest{date: date, time: tm, day: day}, nil
}

func (e *AppointmentExecutor) activeDentists(ctx context.Context) ([]models.Dentist, error) {
	var dentists []models.Dentist
	err := e.db.WithContext(ctx).Where("is_active = ?", true).Order("dentist_id").Find(&dentists).Error
	return dentists, err
}

// DentistNames lists the active dentists. Errors are logged and yield nil.
func (e *AppointmentExecutor) DentistNames(ctx context.Context) []string {
	dentists, err := e.activeDentists(ctx)
	if err != nil {
		e.dbFailure("list dentists", err)
		return nil
	}
	return dentistNames(dentists)
}

// matchDentist finds a dentist by full or partial name, ignoring the "Dr" title.
func matchDentist(dentists []models.Dentist, name string) (models.Dentist, bool) {
	q := strings.ToLower(strings.TrimSpace(name))
	q = strings.TrimPrefix(q, "dr.")
	q = strings.TrimPrefix(q, "dr ")
	q = strings.TrimSpace(q)
	if q == "" {
		return models.Dentist{}, false
	}
	for _, d := range dentists {
		if strings.Contains(strings.ToLower(d.DentistName), q) {
			return d, true
		}
	}
	for _, part := range strings.Fields(q) {
		if len(part) <= 2 {
			continue
		}
		for _, d := range dentists {
			if strings.Contains(strings.ToLower(d.DentistName), part) {
				return d, true
			}
		}
	}
	return models.Dentist{}, false
}

func dentistNames(dentists []models.Dentist) []string {
	return lo.Map(dentists, func(d models.Dentist, _ int) string { return d.DentistName })
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// resolveDentist maps a spoken name onto an active dentist.
func (e *AppointmentExecutor) resolveDentist(ctx context.Context, name string) (models.Dentist, Result) {
	dentists, err := e.activeDentists(ctx)
	if err != nil {
		return models.Dentist{}, e.dbFailure("list dentists", err)
	}
	d, ok := matchDentist(dentists, name)
	if !ok {
		return models.Dentist{}, statusResult(StatusInvalid,
			fmt.Sprintf("We don't have a dentist called %s. Our dentists are %s.", name, joinNames(dentistNames(dentists))))
	}
	return d, nil
}

func countConfirmed(tx *gorm.DB, date, tm, dentist string, excludeID uint) (int64, error) {
	q := tx.Model(&models.Appointment{}).
		Where("preferred_date = ? AND preferred_time = ? AND preferred_dentist = ? AND status = ?",
			date, tm, dentist, models.StatusConfirmed)
	if excludeID != 0 {
		q = q.Where("appointment_id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// bookedSlots returns the confirmed slots of a dentist inside the search horizon.
func (e *AppointmentExecutor) bookedSlots(ctx context.Context, dentist string, from time.Time) (map[parse.Slot]bool, error) {
	until := from.AddDate(0, 0, parse.SearchHorizonDays)
	var rows []models.Appointment
	err := e.db.WithContext(ctx).
		Select("preferred_date", "preferred_time").
		Where("preferred_dentist = ? AND status = ? AND preferred_date >= ? AND preferred_date <= ?",
			dentist, models.StatusConfirmed, from.Format(parse.DateLayout), until.Format(parse.DateLayout)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	booked := make(map[parse.Slot]bool, len(rows))
	for _, r := range rows {
		booked[parse.Slot{Date: r.PreferredDate, Time: r.PreferredTime}] = true
	}
	return booked, nil
}

// CheckAvailability reports whether a dentist is free at the requested slot,
// suggesting that dentist's next free slot when they are not.
func (e *AppointmentExecutor) CheckAvailability(ctx context.Context, date, tm, dentistName string) Result {
	slot, invalid := e.validateSlot(date, tm)
	if invalid != nil {
		return invalid
	}
	dentist, invalid := e.resolveDentist(ctx, dentistName)
	if invalid != nil {
		return invalid
	}

	n, err := countConfirmed(e.db.WithContext(ctx), slot.date, slot.time, dentist.DentistName, 0)
	if err != nil {
		return e.dbFailure("count appointments", err)
	}
	if n == 0 {
		return Result{
			"status":  StatusAvailable,
			"date":    slot.date,
			"time":    slot.time,
			"dentist": dentist.DentistName,
		}
	}

	res := Result{
		"status":  StatusUnavailable,
		"date":    slot.date,
		"time":    slot.time,
		"dentist": dentist.DentistName,
		"message": fmt.Sprintf("%s is not available at that time.", dentist.DentistName),
	}
	booked, err := e.bookedSlots(ctx, dentist.DentistName, slot.day)
	if err != nil {
		return e.dbFailure("list booked slots", err)
	}
	if next, ok := parse.NextAvailableSlot(slot.day, slot.time, booked); ok {
		res["suggested_date"] = next.Date
		res["suggested_time"] = next.Time
	}
	return res
}

// FindAvailableDentist returns the first active dentist free at the slot.
// When everyone is booked it suggests the earliest alternative across all
// dentists, or NOT_AVAILABLE when nothing opens up within the search horizon.
func (e *AppointmentExecutor) FindAvailableDentist(ctx context.Context, date, tm string) Result {
	slot, invalid := e.validateSlot(date, tm)
	if invalid != nil {
		return invalid
	}
	dentists, err := e.activeDentists(ctx)
	if err != nil {
		return e.dbFailure("list dentists", err)
	}

	for _, d := range dentists {
		n, err := countConfirmed(e.db.WithContext(ctx), slot.date, slot.time, d.DentistName, 0)
		if err != nil {
			return e.dbFailure("count appointments", err)
		}
		if n == 0 {
			return Result{
				"status":  StatusAvailable,
				"date":    slot.date,
				"time":    slot.time,
				"dentist": d.DentistName,
			}
		}
	}

	type suggestion struct {
		dentist string
		slot    parse.Slot
	}
	var options []suggestion
	for _, d := range dentists {
		booked, err := e.bookedSlots(ctx, d.DentistName, slot.day)
		if err != nil {
			return e.dbFailure("list booked slots", err)
		}
		if next, ok := parse.NextAvailableSlot(slot.day, slot.time, booked); ok {
			options = append(options, suggestion{dentist: d.DentistName, slot: next})
		}
	}
	if len(options) == 0 {
		return statusResult(StatusNotAvailable, "All of our dentists are fully booked for the next two weeks.")
	}
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i].slot, options[j].slot
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Time < b.Time
	})
	best := options[0]
	return Result{
		"status":            StatusNoneAvailableSuggest,
		"date":              slot.date,
		"time":              slot.time,
		"suggested_dentist": best.dentist,
		"suggested_date":    best.slot.Date,
		"suggested_time":    best.slot.Time,
	}
}

// Book creates a confirmed appointment. The slot is re-checked inside the
// insert transaction.
func (e *AppointmentExecutor) Book(ctx context.Context, req BookingRequest) Result {
	var missing []string
	if req.PatientID == 0 {
		missing = append(missing, "patient")
	}
	if strings.TrimSpace(req.Treatment) == "" {
		missing = append(missing, "treatment")
	}
	if strings.TrimSpace(req.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Time) == "" {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(req.Dentist) == "" {
		missing = append(missing, "dentist")
	}
	if len(missing) > 0 {
		return statusResult(StatusMissingInfo, "Missing booking details: "+strings.Join(missing, ", ")+".")
	}

	var patient models.Patient
	if err := e.db.WithContext(ctx).First(&patient, req.PatientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResult("Patient not found.")
		}
		return e.dbFailure("load patient", err)
	}

	slot, invalid := e.validateSlot(req.Date, req.Time)
	if invalid != nil {
		return invalid
	}

	var dentistName string
	if IsAnyDentist(req.Dentist) {
		found := e.FindAvailableDentist(ctx, slot.date, slot.time)
		if !found.Is(StatusAvailable) {
			return found
		}
		dentistName = found.String("dentist")
	} else {
		dentist, invalid := e.resolveDentist(ctx, req.Dentist)
		if invalid != nil {
			return invalid
		}
		dentistName = dentist.DentistName
	}

	appt := models.Appointment{
		PatientID:          patient.PatientID,
		FirstName:          patient.FirstName,
		LastName:           patient.LastName,
		DateOfBirth:        patient.DateOfBirth,
		ContactNumber:      patient.ContactNumber,
		PreferredTreatment: strings.TrimSpace(req.Treatment),
		PreferredDate:      slot.date,
		PreferredTime:      slot.time,
		PreferredDentist:   dentistName,
		Status:             models.StatusConfirmed,
	}
	err := models.WithTx(ctx, e.db, func(tx *gorm.DB) error {
		n, err := countConfirmed(tx, slot.date, slot.time, dentistName, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return errSlotTaken
		}
		return tx.Create(&appt).Error
	})
	if errors.Is(err, errSlotTaken) {
		return Result{
			"status":  StatusUnavailable,
			"message": fmt.Sprintf("Sorry, %s was just booked at that time. Could you choose another time?", dentistName),
		}
	}
	if err != nil {
		return e.dbFailure("book appointment", err)
	}

	e.emit(ctx, events.AppointmentBooked, map[string]any{
		"appointment_id": appt.AppointmentID,
		"patient_id":     appt.PatientID,
		"date":           appt.PreferredDate,
		"time":           appt.PreferredTime,
		"dentist":        appt.PreferredDentist,
	})
	return Result{
		"status":         StatusBooked,
		"appointment_id": appt.AppointmentID,
		"treatment":      appt.PreferredTreatment,
		"date":           appt.PreferredDate,
		"time":           appt.PreferredTime,
		"dentist":        appt.PreferredDentist,
	}
}

func summarize(a models.Appointment) AppointmentSummary {
	return AppointmentSummary{
		ID:        a.AppointmentID,
		Treatment: a.PreferredTreatment,
		Date:      a.PreferredDate,
		Time:      a.PreferredTime,
		Dentist:   a.PreferredDentist,
		Status:    string(a.Status),
	}
}

// Summaries extracts the appointment list from a SUCCESS result.
func (r Result) Summaries() []AppointmentSummary {
	s, _ := r["appointments"].([]AppointmentSummary)
	return s
}

// ListForPatient returns the patient's active appointments, latest first.
func (e *AppointmentExecutor) ListForPatient(ctx context.Context, patientID uint) Result {
	var rows []models.Appointment
	err := e.db.WithContext(ctx).
		Where("patient_id = ? AND status <> ?", patientID, models.StatusCancelled).
		Order("preferred_date DESC, preferred_time DESC").
		Find(&rows).Error
	if err != nil {
		return e.dbFailure("list appointments", err)
	}
	return Result{
		"status":       StatusSuccess,
		"appointments": lo.Map(rows, func(a models.Appointment, _ int) AppointmentSummary { return summarize(a) }),
		"count":        len(rows),
	}
}

// Update changes the given fields and records an audit row. A new slot is
// validated and checked against other confirmed bookings.
func (e *AppointmentExecutor) Update(ctx context.Context, appointmentID uint, ch Changes) Result {
	if ch.empty() {
		return errorResult("No fields to update")
	}

	var appt models.Appointment
	if err := e.db.WithContext(ctx).First(&appt, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResult("Appointment not found")
		}
		return e.dbFailure("load appointment", err)
	}
	if appt.Status == models.StatusCancelled {
		return errorResult("That appointment has been cancelled.")
	}

	fields := map[string]interface{}{}
	treatment := appt.PreferredTreatment
	if t := strings.TrimSpace(ch.Treatment); t != "" && t != treatment {
		treatment = t
		fields["preferred_treatment"] = t
	}

	date, tm, dentist := appt.PreferredDate, appt.PreferredTime, appt.PreferredDentist
	slotChanged := ch.Date != "" || ch.Time != "" || ch.Dentist != ""
	if slotChanged {
		newDate, newTime := date, tm
		if ch.Date != "" {
			newDate = ch.Date
		}
		if ch.Time != "" {
			newTime = ch.Time
		}
		slot, invalid := e.validateSlot(newDate, newTime)
		if invalid != nil {
			return invalid
		}
		date, tm = slot.date, slot.time
		if ch.Dentist != "" && !IsAnyDentist(ch.Dentist) {
			d, invalid := e.resolveDentist(ctx, ch.Dentist)
			if invalid != nil {
				return invalid
			}
			dentist = d.DentistName
		}
		if date != appt.PreferredDate {
			fields["preferred_date"] = date
		}
		if tm != appt.PreferredTime {
			fields["preferred_time"] = tm
		}
		if dentist != appt.PreferredDentist {
			fields["preferred_dentist"] = dentist
		}
	}
	if len(fields) == 0 {
		return errorResult("No fields to update")
	}

	err := models.WithTx(ctx, e.db, func(tx *gorm.DB) error {
		if slotChanged {
			n, err := countConfirmed(tx, date, tm, dentist, appt.AppointmentID)
			if err != nil {
				return err
			}
			if n > 0 {
				return errSlotTaken
			}
		}
		if err := tx.Model(&appt).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Create(&models.AppointmentUpdate{
			AppointmentID: appt.AppointmentID,
			UpdatedFields: datatypes.JSONMap(fields),
			UpdatedAt:     e.now(),
		}).Error
	})
	if errors.Is(err, errSlotTaken) {
		return Result{
			"status":  StatusUnavailable,
			"message": fmt.Sprintf("%s is already booked at that time. Could you choose another time?", dentist),
		}
	}
	if err != nil {
		return e.dbFailure("update appointment", err)
	}

	e.emit(ctx, events.AppointmentUpdated, map[string]any{
		"appointment_id": appt.AppointmentID,
		"fields":         fields,
	})
	return Result{
		"status":    StatusUpdated,
		"treatment": treatment,
		"date":      date,
		"time":      tm,
		"dentist":   dentist,
	}
}

// Cancel marks an appointment cancelled and records why.
func (e *AppointmentExecutor) Cancel(ctx context.Context, appointmentID uint, reason string) Result {
	var appt models.Appointment
	if err := e.db.WithContext(ctx).First(&appt, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResult("Appointment not found")
		}
		return e.dbFailure("load appointment", err)
	}
	if appt.Status == models.StatusCancelled {
		return errorResult("That appointment is already cancelled.")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Cancelled by patient"
	}

	err := models.WithTx(ctx, e.db, func(tx *gorm.DB) error {
		if err := tx.Model(&appt).Update("status", models.StatusCancelled).Error; err != nil {
			return err
		}
		return tx.Create(&models.Cancellation{AppointmentID: appt.AppointmentID, Reason: reason}).Error
	})
	if err != nil {
		return e.dbFailure("cancel appointment", err)
	}

	e.emit(ctx, events.AppointmentCancelled, map[string]any{
		"appointment_id": appt.AppointmentID,
		"reason":         reason,
	})
	return Result{
		"status":    StatusCancelled,
		"treatment": appt.PreferredTreatment,
		"date":      appt.PreferredDate,
		"time":      appt.PreferredTime,
		"dentist":   appt.PreferredDentist,
	}
}

// Upcoming lists confirmed appointments from today onwards, soonest first.
func (e *AppointmentExecutor) Upcoming(ctx context.Context, patientID uint) Result {
	today := e.now().Format(parse.DateLayout)
	var rows []models.Appointment
	err := e.db.WithContext(ctx).
		Where("patient_id = ? AND status = ? AND preferred_date >= ?", patientID, models.StatusConfirmed, today).
		Order("preferred_date, preferred_time").
		Find(&rows).Error
	if err != nil {
		return e.dbFailure("list upcoming appointments", err)
	}
	return Result{
		"status":       StatusSuccess,
		"appointments": lo.Map(rows, func(a models.Appointment, _ int) AppointmentSummary { return summarize(a) }),
		"count":        len(rows),
	}
}

// History lists past, non-cancelled appointments, most recent first. A
// positive limit caps the list; count is the full total.
func (e *AppointmentExecutor) History(ctx context.Context, patientID uint, limit int) Result {
	today := e.now().Format(parse.DateLayout)
	var rows []models.Appointment
	err := e.db.WithContext(ctx).
		Where("patient_id = ? AND status <> ? AND preferred_date < ?", patientID, models.StatusCancelled, today).
		Order("preferred_date DESC").
		Find(&rows).Error
	if err != nil {
		return e.dbFailure("list past appointments", err)
	}
	total := len(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return Result{
		"status": StatusSuccess,
		"appointments": lo.Map(rows, func(a models.Appointment, _ int) AppointmentSummary {
			s := summarize(a)
			s.Time, s.Status = "", ""
			return s
		}),
		"count": total,
	}
}
