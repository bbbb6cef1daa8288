package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the booking store. Every method is scoped to one owner.
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, ownerID, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// ListActive returns the owner's non-cancelled bookings with
	// from <= occurs_at < to, ordered by occurs_at.
	ListActive(ctx context.Context, ownerID string, from, to time.Time) ([]*Booking, error)
	Update(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, ownerID, id string) error
}

var bookingColumns = []string{
	"id", "owner_id", "customer_id", "vehicle_id", "technician_id", "series_id",
	"occurs_at", "status", "service_type", "notes", "created_at", "updated_at",
}

// sortableColumns maps accepted sort keys to columns.
var sortableColumns = map[string]string{
	"occurs_at":  "occurs_at",
	"status":     "status",
	"created_at": "created_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.OwnerID, &b.CustomerID, &b.VehicleID, &b.TechnicianID, &b.SeriesID,
		&b.OccursAt, &b.Status, &b.ServiceType, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

// mapWriteError turns the overlap exclusion constraint into ErrTimeConflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation, pgerrcode.UniqueViolation:
			return ErrTimeConflict
		}
	}
	return err
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql().Insert("public.bookings").
		Columns("owner_id", "customer_id", "vehicle_id", "technician_id", "series_id",
			"occurs_at", "status", "service_type", "notes").
		Values(b.OwnerID, b.CustomerID, b.VehicleID, b.TechnicianID, b.SeriesID,
			b.OccursAt, b.Status, b.ServiceType, b.Notes).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, ownerID, id string) (*Booking, error) {
	query, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql().Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings").
		Where(squirrel.Eq{"owner_id": filter.OwnerID})

	if filter.CustomerID != "" {
		query = query.Where(squirrel.Eq{"customer_id": filter.CustomerID})
	}
	if filter.VehicleID != "" {
		query = query.Where(squirrel.Eq{"vehicle_id": filter.VehicleID})
	}
	if filter.TechnicianID != "" {
		query = query.Where(squirrel.Eq{"technician_id": filter.TechnicianID})
	}
	if filter.SeriesID != "" {
		query = query.Where(squirrel.Eq{"series_id": filter.SeriesID})
	}
	if filter.ServiceType != "" {
		query = query.Where(squirrel.Eq{"service_type": filter.ServiceType})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where(squirrel.Eq{"status": statuses})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"occurs_at": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"occurs_at": *filter.To})
	}

	orderBy, ok := sortableColumns[filter.SortBy]
	if !ok {
		orderBy = "occurs_at"
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) ListActive(ctx context.Context, ownerID string, from, to time.Time) ([]*Booking, error) {
	query, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.NotEq{"status": string(StatusCancelled)}).
		Where(squirrel.GtOrEq{"occurs_at": from}).
		Where(squirrel.Lt{"occurs_at": to}).
		OrderBy("occurs_at ASC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active bookings failed: %w", err)
	}
	return bookings, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	query, args, err := psql().Update("public.bookings").
		Set("customer_id", b.CustomerID).
		Set("vehicle_id", b.VehicleID).
		Set("technician_id", b.TechnicianID).
		Set("occurs_at", b.OccursAt).
		Set("status", b.Status).
		Set("service_type", b.ServiceType).
		Set("notes", b.Notes).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID, "owner_id": b.OwnerID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, ownerID, id string) error {
	query, args, err := psql().Delete("public.bookings").
		Where(squirrel.Eq{"id": id, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
