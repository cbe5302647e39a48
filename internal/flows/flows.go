// Package flows drives the multi-turn conversations of the text channel:
// booking, updating or cancelling an appointment, filing a complaint,
// verifying the caller and logging business calls. Each flow is a table of
// step handlers keyed by the step name kept in the session.
package flows

import (
	"context"
	"time"

	"dental-receptionist-server/internal/session"
)

// Reply is what the receptionist says back after one user turn.
type Reply struct {
	Response string `json:"response"`
	// Complete is set when the turn finished a flow.
	Complete bool `json:"complete"`
	Booked   bool `json:"booked,omitempty"`

	// set by verification so the router can pick the waiting flow back up
	resume      string
	resumeInput string
}

func say(response string) Reply { return Reply{Response: response} }

func done(response string) Reply { return Reply{Response: response, Complete: true} }

type step func(ctx context.Context, s *session.Session, text string) Reply

type flow interface {
	Start(ctx context.Context, s *session.Session, text string) Reply
	Handle(ctx context.Context, s *session.Session, text string) Reply
}

// Clock returns the current time in the clinic's timezone.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

const (
	anythingElse = " Is there anything else I can help you with?"
	lookupFailed = "I'm sorry, I'm having trouble looking that up right now. Could you try again in a moment?"
)
