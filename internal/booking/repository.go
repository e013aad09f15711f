package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
)

type Repository interface {
	// Create stores b as a new booking and fills ID and timestamps.
	// It re-checks availability atomically with the insert and fails with
	// ErrTimeOverlap when a concurrent writer took the period first.
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// UpdateStatus moves the booking from one status to another. It fails
	// with ErrInvalidTransition if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
	// DeleteByItem removes every booking of the item and reports how many.
	DeleteByItem(ctx context.Context, itemID string) (int, error)
	ListByItem(ctx context.Context, itemID string) ([]*Booking, error)
	ListByBooker(ctx context.Context, bookerID string, q Query) ([]*Booking, int, error)
	ListByOwner(ctx context.Context, ownerID string, q Query) ([]*Booking, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func selectBookings() squirrel.SelectBuilder {
	return psql.Select(
		"b.id", "b.item_id", "i.name", "i.owner_id", "b.booker_id", "u.display_name",
		"b.start_time", "b.end_time", "b.status", "b.created_at", "b.updated_at",
	).
		From("bookings b").
		Join("items i ON b.item_id = i.id").
		Join("users u ON b.booker_id = u.id")
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.ItemID, &b.ItemName, &b.OwnerID, &b.BookerID, &b.BookerName,
		&b.Range.Start, &b.Range.End, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.Range.Start = b.Range.Start.UTC()
	b.Range.End = b.Range.End.UTC()
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create booking tx failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serializes creators of the same item across processes until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, b.ItemID); err != nil {
		return fmt.Errorf("lock item failed: %w", err)
	}

	existing, err := listByItem(ctx, tx, b.ItemID)
	if err != nil {
		return err
	}
	if err := CheckAvailability(b.Range, existing); err != nil {
		return err
	}

	query, args, err := psql.Insert("bookings").
		Columns("item_id", "booker_id", "start_time", "end_time", "status").
		Values(b.ItemID, b.BookerID, b.Range.Start, b.Range.End, b.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ExclusionViolation:
				return apperror.Wrap(ErrTimeOverlap, http.StatusConflict, ErrTimeOverlap.Message)
			case pgerrcode.ForeignKeyViolation:
				if pgErr.ConstraintName == "bookings_booker_id_fkey" {
					return ErrUserNotFound
				}
				return ErrItemNotFound
			}
		}
		return fmt.Errorf("create booking failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := selectBookings().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) ||
			(errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	query, args, err := psql.Update("bookings").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking failed: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperror.Wrap(ErrInvalidTransition, http.StatusBadRequest,
		fmt.Sprintf("cannot change booking status from %s to %s", current.Status, to))
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("bookings").Where(squirrel.Eq{"id": id}).ToSql()
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

func (r *pgxRepository) DeleteByItem(ctx context.Context, itemID string) (int, error) {
	query, args, err := psql.Delete("bookings").Where(squirrel.Eq{"item_id": itemID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete bookings by item query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete bookings by item failed: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (r *pgxRepository) ListByItem(ctx context.Context, itemID string) ([]*Booking, error) {
	return listByItem(ctx, r.pool, itemID)
}

func listByItem(ctx context.Context, q querier, itemID string) ([]*Booking, error) {
	query, args, err := selectBookings().
		Where(squirrel.Eq{"b.item_id": itemID}).
		OrderBy("b.start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list item bookings query failed: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list item bookings failed: %w", err)
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
	return bookings, rows.Err()
}

func (r *pgxRepository) ListByBooker(ctx context.Context, bookerID string, q Query) ([]*Booking, int, error) {
	return r.list(ctx, squirrel.Eq{"b.booker_id": bookerID}, q)
}

func (r *pgxRepository) ListByOwner(ctx context.Context, ownerID string, q Query) ([]*Booking, int, error) {
	return r.list(ctx, squirrel.Eq{"i.owner_id": ownerID}, q)
}

func (r *pgxRepository) list(ctx context.Context, subject squirrel.Sqlizer, q Query) ([]*Booking, int, error) {
	query := selectBookings().
		Column("count(*) OVER() as total_count").
		Where(subject)

	if cond := q.State.condition(q.Now); cond != nil {
		query = query.Where(cond)
	}

	sql, args, err := query.
		OrderBy("b.start_time DESC", "b.id ASC").
		Limit(uint64(q.Page.Limit())).
		Offset(uint64(q.Page.Offset())).
		ToSql()
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

	return bookings, total, rows.Err()
}
