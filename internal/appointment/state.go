package appointment

import (
	"fmt"
	"net/http"

	"github.com/felop/appointment-booking-backend/internal/pkg/apperror"
)

// Trigger is a lifecycle action requested against an appointment.
type Trigger string

const (
	TriggerConfirm  Trigger = "confirm"
	TriggerCancel   Trigger = "cancel"
	TriggerComplete Trigger = "complete"
)

// transitions maps (current status, trigger) to the resulting status.
// Pending is the only initial state; cancelled and completed are terminal.
var transitions = map[Status]map[Trigger]Status{
	StatusPending: {
		TriggerConfirm: StatusConfirmed,
		TriggerCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		TriggerCancel:   StatusCancelled,
		TriggerComplete: StatusCompleted,
	},
}

// Transition applies a lifecycle trigger and returns the next status.
// Illegal combinations return an error naming the trigger and current status.
func (s Status) Transition(trigger Trigger) (Status, error) {
	if next, ok := transitions[s][trigger]; ok {
		return next, nil
	}
	return "", apperror.Wrap(
		ErrInvalidTransition,
		http.StatusBadRequest,
		fmt.Sprintf("cannot %s appointment in status %q", trigger, s),
	)
}

// CanTransition reports whether the trigger is legal from the current status.
func (s Status) CanTransition(trigger Trigger) bool {
	_, ok := transitions[s][trigger]
	return ok
}
