package http

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/felop/appointment-booking-backend/internal/appointment"
	"github.com/felop/appointment-booking-backend/internal/pkg/request"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9\s-]{9,15}$`)

// AppointmentRequest is the write shape for both create and full update.
// Status, confirmation code and timestamps are never accepted here; they
// are managed by their own endpoints.
type AppointmentRequest struct {
	CustomerName string          `json:"customer_name" binding:"required"`
	Email        string          `json:"email" binding:"required,email"`
	Phone        string          `json:"phone" binding:"required"`
	Date         string          `json:"date" binding:"required"`
	StartTime    string          `json:"start_time" binding:"required"`
	EndTime      string          `json:"end_time" binding:"required"`
	Service      string          `json:"service" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	Notes        string          `json:"notes"`
}

// Parse validates the structural constraints and converts the request into
// the service input shape. All violations are collected into a field error
// list rather than failing on the first one.
func (r *AppointmentRequest) Parse(now time.Time) (appointment.CreateRequest, []request.FieldError) {
	var errs []request.FieldError
	fail := func(field, message string) {
		errs = append(errs, request.FieldError{Field: field, Message: message})
	}

	if l := len(r.CustomerName); l < 2 || l > 100 {
		fail("customer_name", "must be between 2 and 100 characters")
	}
	if !phonePattern.MatchString(r.Phone) {
		fail("phone", "invalid phone number format")
	}
	if l := len(r.Service); l < 2 || l > 100 {
		fail("service", "must be between 2 and 100 characters")
	}
	if len(r.Notes) > 500 {
		fail("notes", "must not exceed 500 characters")
	}
	if r.Price.IsNegative() {
		fail("price", "must be zero or positive")
	}

	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		fail("date", "must be a valid date in YYYY-MM-DD format")
	} else {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if date.Before(today) {
			fail("date", "must not be in the past")
		}
	}

	start, err := appointment.ParseTimeOfDay(r.StartTime)
	if err != nil {
		fail("start_time", "must be a valid time in HH:MM format")
	}
	end, err := appointment.ParseTimeOfDay(r.EndTime)
	if err != nil {
		fail("end_time", "must be a valid time in HH:MM format")
	}

	if errs != nil {
		return appointment.CreateRequest{}, errs
	}

	return appointment.CreateRequest{
		CustomerName: r.CustomerName,
		Email:        r.Email,
		Phone:        r.Phone,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		Service:      r.Service,
		Price:        r.Price,
		Notes:        r.Notes,
	}, nil
}

// bindingFieldErrors converts gin binding failures into the same field
// error list shape used by Parse.
func bindingFieldErrors(err error) []request.FieldError {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []request.FieldError{{Field: "body", Message: "invalid request body"}}
	}

	errs := make([]request.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		errs = append(errs, request.FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
		})
	}
	return errs
}

type AppointmentResponse struct {
	ID               int64           `json:"id"`
	CustomerName     string          `json:"customer_name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Date             string          `json:"date"`
	StartTime        string          `json:"start_time"`
	EndTime          string          `json:"end_time"`
	DurationMinutes  int             `json:"duration_minutes"`
	Service          string          `json:"service"`
	Price            decimal.Decimal `json:"price"`
	Notes            string          `json:"notes,omitempty"`
	Status           string          `json:"status"`
	ConfirmationCode string          `json:"confirmation_code"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func NewAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		CustomerName:     a.CustomerName,
		Email:            a.Email,
		Phone:            a.Phone,
		Date:             a.Date.Format(time.DateOnly),
		StartTime:        a.StartTime.Format(appointment.TimeOfDayLayout),
		EndTime:          a.EndTime.Format(appointment.TimeOfDayLayout),
		DurationMinutes:  a.DurationMinutes(),
		Service:          a.Service,
		Price:            a.Price,
		Notes:            a.Notes,
		Status:           string(a.Status),
		ConfirmationCode: a.ConfirmationCode,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// BookingConfirmation is the create-time projection: a trimmed record plus
// a human-shareable message carrying the confirmation code.
type BookingConfirmation struct {
	ID               int64  `json:"id"`
	ConfirmationCode string `json:"confirmation_code"`
	CustomerName     string `json:"customer_name"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Service          string `json:"service"`
	Status           string `json:"status"`
	Message          string `json:"message"`
}

func NewBookingConfirmation(a *appointment.Appointment) BookingConfirmation {
	return BookingConfirmation{
		ID:               a.ID,
		ConfirmationCode: a.ConfirmationCode,
		CustomerName:     a.CustomerName,
		Date:             a.Date.Format(time.DateOnly),
		StartTime:        a.StartTime.Format(appointment.TimeOfDayLayout),
		EndTime:          a.EndTime.Format(appointment.TimeOfDayLayout),
		Service:          a.Service,
		Status:           string(a.Status),
		Message: fmt.Sprintf(
			"Appointment booked successfully. Confirmation code: %s. Please confirm your attendance.",
			a.ConfirmationCode),
	}
}

type AvailabilityResponse struct {
	Date           string   `json:"date"`
	AllSlots       []string `json:"all_slots"`
	AvailableSlots []string `json:"available_slots"`
	OccupiedSlots  []string `json:"occupied_slots"`
	TotalAvailable int      `json:"total_available"`
}

func NewAvailabilityResponse(av appointment.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Date:           av.Date.Format(time.DateOnly),
		AllSlots:       av.AllSlots,
		AvailableSlots: av.AvailableSlots,
		OccupiedSlots:  av.OccupiedSlots,
		TotalAvailable: av.TotalAvailable,
	}
}
