package appointment

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felop/appointment-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "appointment not found")
	ErrSlotUnavailable   = apperror.New(http.StatusConflict, "requested time slot is already booked")
	ErrInvalidTimeRange  = apperror.New(http.StatusBadRequest, "invalid appointment time range")
	ErrInvalidTransition = apperror.New(http.StatusBadRequest, "invalid appointment state transition")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid appointment status")
)

// Business rules for the single shared daily schedule.
// All times are wall-clock in the facility's timezone.
var (
	OpeningTime = mustTimeOfDay(8, 0)
	ClosingTime = mustTimeOfDay(20, 0)
)

const (
	SlotDuration       = 30 * time.Minute
	MinDuration        = 15 * time.Minute
	MaxDuration        = 8 * time.Hour
	MinAdvanceNotice   = 2 * time.Hour
	ConfirmationPrefix = "APT-"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus converts a raw string into a known Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// IsActive reports whether appointments in this status block their time slot.
// Cancelled and completed appointments never constrain new bookings.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Appointment is the canonical record. StartTime and EndTime carry only the
// time of day (zero date); Date carries only the calendar day.
type Appointment struct {
	ID               int64
	CustomerName     string
	Email            string
	Phone            string
	Date             time.Time
	StartTime        time.Time
	EndTime          time.Time
	Service          string
	Price            decimal.Decimal
	Notes            string
	Status           Status
	ConfirmationCode string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DurationMinutes is derived from the time range, never stored.
func (a *Appointment) DurationMinutes() int {
	return int(a.EndTime.Sub(a.StartTime) / time.Minute)
}

// StartsAt combines the appointment date with its start time into a single
// point in time, used for the advance-notice check.
func (a *Appointment) StartsAt() time.Time {
	return CombineDateTime(a.Date, a.StartTime)
}

// CombineDateTime merges a calendar date with a time of day.
func CombineDateTime(date, timeOfDay time.Time) time.Time {
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), 0, 0,
		date.Location(),
	)
}

func mustTimeOfDay(hour, minute int) time.Time {
	return time.Date(0, time.January, 1, hour, minute, 0, 0, time.UTC)
}
