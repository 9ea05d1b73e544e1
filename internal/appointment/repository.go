package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCodeTaken is returned by Create when the generated confirmation code
// lost a race against a concurrent insert. Callers regenerate and retry.
var ErrCodeTaken = errors.New("confirmation code already taken")

type Repository interface {
	Create(ctx context.Context, apt *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	List(ctx context.Context, page, pageSize int) ([]*Appointment, int, error)
	Update(ctx context.Context, apt *Appointment) error
	Delete(ctx context.Context, id int64) error

	GetByCode(ctx context.Context, code string) (*Appointment, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByEmail(ctx context.Context, email string) ([]*Appointment, error)
	ListByStatus(ctx context.Context, status Status) ([]*Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error)

	// FindOverlapping returns active (pending/confirmed) appointments on the
	// date whose time range intersects [start, end). excludeID is used during
	// updates to ignore the appointment itself; pass 0 otherwise.
	FindOverlapping(ctx context.Context, date time.Time, start, end time.Time, excludeID int64) ([]*Appointment, error)

	// ListActiveByDate returns pending/confirmed appointments on the date,
	// sorted by start time.
	ListActiveByDate(ctx context.Context, date time.Time) ([]*Appointment, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var appointmentColumns = []string{
	"id", "customer_name", "email", "phone",
	"date", "start_time", "end_time",
	"service", "price", "notes", "status", "confirmation_code",
	"created_at", "updated_at",
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// timeOfDay maps a wall-clock time.Time onto a postgres TIME value.
func timeOfDay(t time.Time) pgtype.Time {
	micros := int64(t.Hour())*int64(time.Hour/time.Microsecond) +
		int64(t.Minute())*int64(time.Minute/time.Microsecond)
	return pgtype.Time{Microseconds: micros, Valid: true}
}

func fromTimeOfDay(t pgtype.Time) time.Time {
	d := time.Duration(t.Microseconds) * time.Microsecond
	return time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Add(d)
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a          Appointment
		start, end pgtype.Time
	)
	err := row.Scan(
		&a.ID, &a.CustomerName, &a.Email, &a.Phone,
		&a.Date, &start, &end,
		&a.Service, &a.Price, &a.Notes, &a.Status, &a.ConfirmationCode,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.StartTime = fromTimeOfDay(start)
	a.EndTime = fromTimeOfDay(end)
	return &a, nil
}

func (r *pgxRepository) collect(ctx context.Context, sql string, args []any) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments failed: %w", err)
	}
	defer rows.Close()

	var apts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment failed: %w", err)
		}
		apts = append(apts, a)
	}
	return apts, rows.Err()
}

func (r *pgxRepository) Create(ctx context.Context, a *Appointment) error {
	query, args, err := psql().Insert("public.appointments").
		Columns(
			"customer_name", "email", "phone",
			"date", "start_time", "end_time",
			"service", "price", "notes", "status", "confirmation_code",
		).
		Values(
			a.CustomerName, a.Email, a.Phone,
			a.Date, timeOfDay(a.StartTime), timeOfDay(a.EndTime),
			a.Service, a.Price, a.Notes, a.Status, a.ConfirmationCode,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create appointment query failed: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrCodeTaken
		}
		return fmt.Errorf("create appointment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	query, args, err := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get appointment query failed: %w", err)
	}

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) List(ctx context.Context, page, pageSize int) ([]*Appointment, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	cols := append(append([]string{}, appointmentColumns...), "count(*) OVER() AS total_count")
	query, args, err := psql().Select(cols...).
		From("public.appointments").
		OrderBy("date DESC", "start_time DESC").
		Limit(uint64(pageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list appointments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments failed: %w", err)
	}
	defer rows.Close()

	var (
		apts  []*Appointment
		total int
	)
	for rows.Next() {
		var (
			a          Appointment
			start, end pgtype.Time
		)
		if err := rows.Scan(
			&a.ID, &a.CustomerName, &a.Email, &a.Phone,
			&a.Date, &start, &end,
			&a.Service, &a.Price, &a.Notes, &a.Status, &a.ConfirmationCode,
			&a.CreatedAt, &a.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan appointment failed: %w", err)
		}
		a.StartTime = fromTimeOfDay(start)
		a.EndTime = fromTimeOfDay(end)
		apts = append(apts, &a)
	}
	return apts, total, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, a *Appointment) error {
	query, args, err := psql().Update("public.appointments").
		Set("customer_name", a.CustomerName).
		Set("email", a.Email).
		Set("phone", a.Phone).
		Set("date", a.Date).
		Set("start_time", timeOfDay(a.StartTime)).
		Set("end_time", timeOfDay(a.EndTime)).
		Set("service", a.Service).
		Set("price", a.Price).
		Set("notes", a.Notes).
		Set("status", a.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": a.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update appointment query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update appointment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql().Delete("public.appointments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete appointment query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete appointment failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	query, args, err := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"confirmation_code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get by code query failed: %w", err)
	}

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment by code failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	// Codes stay reserved forever, so cancelled and completed
	// appointments are deliberately not filtered out here.
	sub, args, err := psql().Select("1").
		From("public.appointments").
		Where(squirrel.Eq{"confirmation_code": code}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists by code query failed: %w", err)
	}

	var exists bool
	err = r.pool.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code exists failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) ListByEmail(ctx context.Context, email string) ([]*Appointment, error) {
	query, args, err := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"email": email}).
		OrderBy("date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by email query failed: %w", err)
	}
	return r.collect(ctx, query, args)
}

func (r *pgxRepository) ListByStatus(ctx context.Context, status Status) ([]*Appointment, error) {
	query, args, err := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"status": status}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by status query failed: %w", err)
	}
	return r.collect(ctx, query, args)
}

func (r *pgxRepository) ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	query, args, err := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"date": date}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by date query failed: %w", err)
	}
	return r.collect(ctx, query, args)
}

func (r *pgxRepository) FindOverlapping(ctx context.Context, date time.Time, start, end time.Time, excludeID int64) ([]*Appointment, error) {
	// Half-open intervals: an appointment ending exactly when another
	// starts does not conflict.
	builder := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"date": date}).
		Where(squirrel.Eq{"status": []Status{StatusPending, StatusConfirmed}}).
		Where(squirrel.Lt{"start_time": timeOfDay(end)}).
		Where(squirrel.Gt{"end_time": timeOfDay(start)})

	if excludeID != 0 {
		builder = builder.Where(squirrel.NotEq{"id": excludeID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find overlapping query failed: %w", err)
	}
	return r.collect(ctx, query, args)
}

func (r *pgxRepository) ListActiveByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	query, args, err := psql().Select(appointmentColumns...).
		From("public.appointments").
		Where(squirrel.Eq{"date": date}).
		Where(squirrel.Eq{"status": []Status{StatusPending, StatusConfirmed}}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active by date query failed: %w", err)
	}
	return r.collect(ctx, query, args)
}
