// Package executors holds the clinic operations invoked by the voice tools,
// the text flows and the portal. Every operation answers with a Result whose
// "status" key tells the caller what happened; database failures are logged
// and reported as ERROR results rather than returned.
package executors

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/events"
)

// Result statuses
const (
	StatusVerified             = "VERIFIED"
	StatusMultipleFound        = "MULTIPLE_FOUND"
	StatusNotFound             = "NOT_FOUND"
	StatusCreated              = "CREATED"
	StatusAvailable            = "AVAILABLE"
	StatusUnavailable          = "UNAVAILABLE"
	StatusNotAvailable         = "NOT_AVAILABLE"
	StatusFound                = "FOUND"
	StatusNoneAvailableSuggest = "NONE_AVAILABLE_SUGGEST"
	StatusBooked               = "BOOKED"
	StatusUpdated              = "UPDATED"
	StatusCancelled            = "CANCELLED"
	StatusSaved                = "SAVED"
	StatusSuccess              = "SUCCESS"
	StatusLogged               = "LOGGED"
	StatusError                = "ERROR"
	StatusMissingInfo          = "MISSING_INFO"
	StatusInvalid              = "INVALID"
)

const databaseApology = "I'm sorry, something went wrong on our side. Please try again in a moment."

// Result is the status-tagged answer of an executor operation. It is encoded
// as JSON when handed back to the speech model.
type Result map[string]any

// Status returns the status tag.
func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

// Is reports whether the result carries the given status.
func (r Result) Is(status string) bool {
	return r.Status() == status
}

// Message returns the human readable message, if any.
func (r Result) Message() string {
	s, _ := r["message"].(string)
	return s
}

// String returns a string field or "".
func (r Result) String(key string) string {
	s, _ := r[key].(string)
	return s
}

func statusResult(status, message string) Result {
	return Result{"status": status, "message": message}
}

func errorResult(message string) Result {
	return statusResult(StatusError, message)
}

// Deps are shared by every executor.
type Deps struct {
	DB     *gorm.DB
	Log    *zap.Logger
	Events events.Publisher
	// Now returns the current time in the clinic's timezone. Defaults to time.Now.
	Now func() time.Time
}

type base struct {
	db     *gorm.DB
	log    *zap.Logger
	events events.Publisher
	now    func() time.Time
}

func newBase(d Deps, component string) base {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return base{db: d.DB, log: log.Named(component), events: d.Events, now: now}
}

// dbFailure logs a database error and turns it into an ERROR result.
func (b base) dbFailure(op string, err error) Result {
	b.log.Error("database operation failed", zap.String("op", op), zap.Error(errors.Wrap(err, op)))
	return errorResult(databaseApology)
}

func (b base) emit(ctx context.Context, eventType string, payload map[string]any) {
	events.Emit(ctx, b.events, b.log, events.New(eventType, payload))
}

// Set bundles the executors a call or the portal needs.
type Set struct {
	Appointments *AppointmentExecutor
	Verification *VerificationExecutor
	Complaints   *ComplaintExecutor
	Business     *BusinessExecutor
	Information  *InformationExecutor
}

// NewSet builds every database executor from shared deps. The information
// executor is passed in because it needs an LLM client.
func NewSet(d Deps, info *InformationExecutor) *Set {
	return &Set{
		Appointments: NewAppointmentExecutor(d),
		Verification: NewVerificationExecutor(d),
		Complaints:   NewComplaintExecutor(d),
		Business:     NewBusinessExecutor(d),
		Information:  info,
	}
}
