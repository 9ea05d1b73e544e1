package appointment

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryRepository is an in-memory Repository used to exercise the service
// without a database.
type memoryRepository struct {
	nextID int64
	byID   map[int64]*Appointment
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{nextID: 1, byID: map[int64]*Appointment{}}
}

func (m *memoryRepository) clone(a *Appointment) *Appointment {
	cp := *a
	return &cp
}

func (m *memoryRepository) Create(ctx context.Context, a *Appointment) error {
	for _, existing := range m.byID {
		if existing.ConfirmationCode == a.ConfirmationCode {
			return ErrCodeTaken
		}
	}
	a.ID = m.nextID
	m.nextID++
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = m.clone(a)
	return nil
}

func (m *memoryRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.clone(a), nil
}

func (m *memoryRepository) List(ctx context.Context, page, pageSize int) ([]*Appointment, int, error) {
	var all []*Appointment
	for _, a := range m.byID {
		all = append(all, m.clone(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, len(all), nil
}

func (m *memoryRepository) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.byID[a.ID]; !ok {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now()
	m.byID[a.ID] = m.clone(a)
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	for _, a := range m.byID {
		if a.ConfirmationCode == code {
			return m.clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memoryRepository) ListByEmail(ctx context.Context, email string) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.byID {
		if a.Email == email {
			out = append(out, m.clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memoryRepository) ListByStatus(ctx context.Context, status Status) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.byID {
		if a.Status == status {
			out = append(out, m.clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memoryRepository) ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.byID {
		if sameDate(a.Date, date) {
			out = append(out, m.clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memoryRepository) FindOverlapping(ctx context.Context, date time.Time, start, end time.Time, excludeID int64) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.byID {
		if a.ID == excludeID || !sameDate(a.Date, date) || !a.Status.IsActive() {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			out = append(out, m.clone(a))
		}
	}
	return out, nil
}

func (m *memoryRepository) ListActiveByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.byID {
		if sameDate(a.Date, date) && a.Status.IsActive() {
			out = append(out, m.clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var (
	testDate = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	// Well before the day so the 2-hour notice never interferes unless a
	// test moves the clock deliberately.
	testNow = time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
)

func newTestService(repo Repository, now time.Time) Service {
	return NewService(repo, NewCodeGenerator(), fixedClock{now: now}, zap.NewNop())
}

func validRequest(t *testing.T, start, end string) CreateRequest {
	return CreateRequest{
		CustomerName: "Ana Torres",
		Email:        "ana@example.com",
		Phone:        "+34 600 123 456",
		Date:         testDate,
		StartTime:    tod(t, start),
		EndTime:      tod(t, end),
		Service:      "Haircut",
		Price:        decimal.NewFromFloat(25.50),
		Notes:        "first visit",
	}
}

func TestCreateAppointment(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)

	apt, err := svc.Create(context.Background(), validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	assert.NotZero(t, apt.ID)
	assert.Equal(t, StatusPending, apt.Status)
	assert.Regexp(t, codePattern, apt.ConfirmationCode)
	assert.Equal(t, 60, apt.DurationMinutes())
	assert.False(t, apt.CreatedAt.IsZero())
}

func TestCreateRejectsInvalidTimeRanges(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)

	tests := []struct {
		name       string
		start, end string
	}{
		{"start equals end", "10:00", "10:00"},
		{"start after end", "11:00", "10:00"},
		{"too short", "10:00", "10:10"},
		{"too long", "09:00", "17:30"},
		{"before opening", "07:30", "09:00"},
		{"after closing", "19:00", "20:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), validRequest(t, tt.start, tt.end))
			assert.ErrorIs(t, err, ErrInvalidTimeRange)
		})
	}
}

func TestCreateRejectsInsufficientAdvanceNotice(t *testing.T) {
	// Clock at 08:30 on the appointment day; a 10:00 start is only 1.5h out.
	now := time.Date(2026, 9, 14, 8, 30, 0, 0, time.UTC)
	svc := newTestService(newMemoryRepository(), now)

	_, err := svc.Create(context.Background(), validRequest(t, "10:00", "11:00"))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	// 10:30 is exactly 2h out and must pass.
	_, err = svc.Create(context.Background(), validRequest(t, "10:30", "11:30"))
	assert.NoError(t, err)
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validRequest(t, "09:30", "10:30"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Back-to-back is not an overlap.
	_, err = svc.Create(ctx, validRequest(t, "10:00", "11:00"))
	assert.NoError(t, err)
}

func TestCreateSucceedsOverCancelledAppointment(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	first, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, first.ID)
	require.NoError(t, err)

	// The cancelled appointment no longer blocks its slot.
	_, err = svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	assert.NoError(t, err)
}

func TestBookingsNeverOverlap(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	requests := [][2]string{
		{"08:00", "09:00"}, {"08:30", "09:30"}, {"09:00", "10:00"},
		{"09:30", "11:00"}, {"10:00", "10:30"}, {"11:00", "12:00"},
	}

	var accepted []*Appointment
	for _, r := range requests {
		apt, err := svc.Create(ctx, validRequest(t, r[0], r[1]))
		if err != nil {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
			continue
		}
		accepted = append(accepted, apt)
	}

	require.NotEmpty(t, accepted)
	for i, a := range accepted {
		for _, b := range accepted[i+1:] {
			assert.False(t, Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				"%s and %s overlap", FormatRange(a.StartTime, a.EndTime), FormatRange(b.StartTime, b.EndTime))
		}
	}
}

func TestUpdateExcludesSelfFromOverlapCheck(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	apt, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	// Re-saving the identical time range must not self-conflict.
	updated, err := svc.Update(ctx, apt.ID, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, apt.ID, updated.ID)
	assert.Equal(t, apt.ConfirmationCode, updated.ConfirmationCode)
	assert.Equal(t, apt.Status, updated.Status)
}

func TestUpdateRejectsOverlapWithOtherAppointment(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	second, err := svc.Create(ctx, validRequest(t, "11:00", "12:00"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, validRequest(t, "09:30", "10:30"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestUpdateKeepsStatusAndCode(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	apt, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, apt.ID)
	require.NoError(t, err)

	req := validRequest(t, "15:00", "16:00")
	req.Notes = "rescheduled"
	updated, err := svc.Update(ctx, apt.ID, req)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, confirmed.ConfirmationCode, updated.ConfirmationCode)
	assert.Equal(t, "rescheduled", updated.Notes)
	assert.Equal(t, "15:00", updated.StartTime.Format(TimeOfDayLayout))
}

func TestDelete(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	apt, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, apt.ID))

	_, err = svc.GetByID(ctx, apt.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, apt.ID), ErrNotFound)
}

func TestLifecycleTransitions(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	t.Run("confirm then complete", func(t *testing.T) {
		apt, err := svc.Create(ctx, validRequest(t, "08:00", "09:00"))
		require.NoError(t, err)

		confirmed, err := svc.Confirm(ctx, apt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)

		completed, err := svc.Complete(ctx, apt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, completed.Status)

		// Terminal: no further transitions.
		_, err = svc.Cancel(ctx, apt.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = svc.Confirm(ctx, apt.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cannot complete pending", func(t *testing.T) {
		apt, err := svc.Create(ctx, validRequest(t, "10:00", "11:00"))
		require.NoError(t, err)

		_, err = svc.Complete(ctx, apt.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cannot confirm twice", func(t *testing.T) {
		apt, err := svc.Create(ctx, validRequest(t, "12:00", "13:00"))
		require.NoError(t, err)

		_, err = svc.Confirm(ctx, apt.ID)
		require.NoError(t, err)
		_, err = svc.Confirm(ctx, apt.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cannot cancel twice", func(t *testing.T) {
		apt, err := svc.Create(ctx, validRequest(t, "14:00", "15:00"))
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, apt.ID)
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, apt.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("transition on missing appointment", func(t *testing.T) {
		_, err := svc.Confirm(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAvailabilityThroughService(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	apt, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	av, err := svc.Availability(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, 22, av.TotalAvailable)
	assert.Equal(t, []string{"09:00 - 10:00"}, av.OccupiedSlots)

	// Cancelling frees the slots again.
	_, err = svc.Cancel(ctx, apt.ID)
	require.NoError(t, err)

	av, err = svc.Availability(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, 24, av.TotalAvailable)
	assert.Empty(t, av.OccupiedSlots)
}

func TestGetByCode(t *testing.T) {
	svc := newTestService(newMemoryRepository(), testNow)
	ctx := context.Background()

	apt, err := svc.Create(ctx, validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)

	found, err := svc.GetByCode(ctx, apt.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, apt.ID, found.ID)

	_, err = svc.GetByCode(ctx, "APT-ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRetriesWhenInsertLosesCodeRace(t *testing.T) {
	repo := newMemoryRepository()

	// Pre-seed an appointment whose code the first draw will collide with,
	// while exists checks are answered against an empty view to force the
	// collision through to the insert.
	seeded := &Appointment{
		Date:             testDate,
		StartTime:        tod(t, "18:00"),
		EndTime:          tod(t, "19:00"),
		Status:           StatusCancelled,
		ConfirmationCode: "APT-AAAA",
	}
	require.NoError(t, repo.Create(context.Background(), seeded))

	draws := []string{"aaaacccc", "bbbbdddd"}
	i := 0
	gen := NewCodeGeneratorWithSource(func() string {
		d := draws[i%len(draws)]
		i++
		return d
	})

	svc := NewService(&racingRepo{memoryRepository: repo}, gen, fixedClock{now: testNow}, zap.NewNop())

	apt, err := svc.Create(context.Background(), validRequest(t, "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "APT-BBBB", apt.ConfirmationCode)
}

// racingRepo reports every code as free so the collision is only caught by
// the insert, mimicking a concurrent writer winning the race.
type racingRepo struct {
	*memoryRepository
}

func (r *racingRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}
