package appointment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/felop/appointment-booking-backend/internal/pkg/apperror"
)

// createMaxAttempts bounds the insert retry loop for confirmation-code
// races. The generator itself already checks uniqueness, so hitting this
// limit means something is seriously wrong with the random source.
const createMaxAttempts = 5

// CreateRequest carries the bookable fields of an appointment. The same
// shape is used for full updates; id, status, confirmation code and
// timestamps are never settable through it.
type CreateRequest struct {
	CustomerName string
	Email        string
	Phone        string
	Date         time.Time
	StartTime    time.Time
	EndTime      time.Time
	Service      string
	Price        decimal.Decimal
	Notes        string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Appointment, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	List(ctx context.Context, page, pageSize int) ([]*Appointment, int, error)
	Update(ctx context.Context, id int64, req CreateRequest) (*Appointment, error)
	Delete(ctx context.Context, id int64) error

	GetByCode(ctx context.Context, code string) (*Appointment, error)
	ListByEmail(ctx context.Context, email string) ([]*Appointment, error)
	ListByStatus(ctx context.Context, status Status) ([]*Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error)

	Availability(ctx context.Context, date time.Time) (Availability, error)

	Confirm(ctx context.Context, id int64) (*Appointment, error)
	Cancel(ctx context.Context, id int64) (*Appointment, error)
	Complete(ctx context.Context, id int64) (*Appointment, error)
}

type service struct {
	repo  Repository
	codes *CodeGenerator
	clock Clock
	log   *zap.Logger
}

func NewService(repo Repository, codes *CodeGenerator, clock Clock, log *zap.Logger) Service {
	return &service{
		repo:  repo,
		codes: codes,
		clock: clock,
		log:   log,
	}
}

// validateSchedule runs the booking rules in fixed order: time-range sanity
// and business-hours containment, then overlap, then advance notice. The
// order decides which error a caller sees first when several rules fail.
func (s *service) validateSchedule(ctx context.Context, date, start, end time.Time, excludeID int64) error {
	if err := validateTimeRange(start, end); err != nil {
		return err
	}
	if err := validateBusinessHours(start, end); err != nil {
		return err
	}
	if err := s.validateNoOverlap(ctx, date, start, end, excludeID); err != nil {
		return err
	}
	return s.validateAdvanceNotice(date, start)
}

func validateTimeRange(start, end time.Time) error {
	if !start.Before(end) {
		return apperror.Wrap(ErrInvalidTimeRange, http.StatusBadRequest,
			"start time must be before end time")
	}
	if d := end.Sub(start); d < MinDuration || d > MaxDuration {
		return apperror.Wrap(ErrInvalidTimeRange, http.StatusBadRequest,
			fmt.Sprintf("appointment duration must be between %v and %v", MinDuration, MaxDuration))
	}
	return nil
}

func validateBusinessHours(start, end time.Time) error {
	if start.Before(OpeningTime) || end.After(ClosingTime) {
		return apperror.Wrap(ErrInvalidTimeRange, http.StatusBadRequest,
			fmt.Sprintf("appointments must be within business hours (%s)",
				FormatRange(OpeningTime, ClosingTime)))
	}
	return nil
}

func (s *service) validateNoOverlap(ctx context.Context, date, start, end time.Time, excludeID int64) error {
	overlapping, err := s.repo.FindOverlapping(ctx, date, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return apperror.Wrap(ErrSlotUnavailable, http.StatusConflict,
			fmt.Sprintf("the requested time slot (%s) is already booked", FormatRange(start, end)))
	}
	return nil
}

func (s *service) validateAdvanceNotice(date, start time.Time) error {
	startsAt := CombineDateTime(date, start)
	earliest := s.clock.Now().Add(MinAdvanceNotice)
	if startsAt.Before(earliest) {
		return apperror.Wrap(ErrInvalidTimeRange, http.StatusBadRequest,
			fmt.Sprintf("appointments must be booked at least %v in advance", MinAdvanceNotice))
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := s.validateSchedule(ctx, req.Date, req.StartTime, req.EndTime, 0); err != nil {
		return nil, err
	}

	apt := &Appointment{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Service:      req.Service,
		Price:        req.Price,
		Notes:        req.Notes,
		Status:       StatusPending,
	}

	for attempt := 1; ; attempt++ {
		code, err := s.codes.Generate(ctx, s.repo.ExistsByCode)
		if err != nil {
			return nil, err
		}
		apt.ConfirmationCode = code

		err = s.repo.Create(ctx, apt)
		if err == nil {
			return apt, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, err
		}
		if attempt >= createMaxAttempts {
			return nil, fmt.Errorf("create appointment: confirmation code collisions exhausted %d attempts", attempt)
		}
		s.log.Warn("confirmation code race lost, regenerating",
			zap.String("code", code),
			zap.Int("attempt", attempt))
	}
}

func (s *service) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, page, pageSize int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, page, pageSize)
}

// Update replaces the bookable fields of an existing appointment. The
// overlap check excludes the appointment itself so an unchanged time range
// never self-conflicts. Status, confirmation code and timestamps are kept.
func (s *service) Update(ctx context.Context, id int64, req CreateRequest) (*Appointment, error) {
	apt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validateSchedule(ctx, req.Date, req.StartTime, req.EndTime, apt.ID); err != nil {
		return nil, err
	}

	apt.CustomerName = req.CustomerName
	apt.Email = req.Email
	apt.Phone = req.Phone
	apt.Date = req.Date
	apt.StartTime = req.StartTime
	apt.EndTime = req.EndTime
	apt.Service = req.Service
	apt.Price = req.Price
	apt.Notes = req.Notes

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *service) ListByEmail(ctx context.Context, email string) ([]*Appointment, error) {
	return s.repo.ListByEmail(ctx, email)
}

func (s *service) ListByStatus(ctx context.Context, status Status) ([]*Appointment, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *service) ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	return s.repo.ListByDate(ctx, date)
}

func (s *service) Availability(ctx context.Context, date time.Time) (Availability, error) {
	active, err := s.repo.ListActiveByDate(ctx, date)
	if err != nil {
		return Availability{}, err
	}
	return ComputeAvailability(date, active), nil
}

func (s *service) Confirm(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, TriggerConfirm)
}

func (s *service) Cancel(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, TriggerCancel)
}

func (s *service) Complete(ctx context.Context, id int64) (*Appointment, error) {
	return s.transition(ctx, id, TriggerComplete)
}

// transition applies a lifecycle trigger to a single appointment. Nothing
// is persisted when the trigger is illegal from the current status.
func (s *service) transition(ctx context.Context, id int64, trigger Trigger) (*Appointment, error) {
	apt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := apt.Status.Transition(trigger)
	if err != nil {
		return nil, err
	}

	apt.Status = next
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, err
	}

	s.log.Info("appointment status changed",
		zap.Int64("id", apt.ID),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(next)))
	return apt, nil
}
