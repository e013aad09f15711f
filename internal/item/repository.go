package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, filter Filter) ([]*Item, int, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) Create(ctx context.Context, it *Item) error {
	query, args, err := psql.Insert("items").
		Columns("owner_id", "name", "description", "available").
		Values(it.OwnerID, it.Name, it.Description, it.Available).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create item query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("create item failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Item, error) {
	query, args, err := psql.Select("id", "owner_id", "name", "description", "available", "created_at", "updated_at").
		From("items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get item query failed: %w", err)
	}

	var it Item
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Available, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) ||
			(errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	return &it, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Item, int, error) {
	query := psql.Select(
		"id", "owner_id", "name", "description", "available", "created_at", "updated_at",
		"count(*) OVER() as total_count",
	).From("items")

	if filter.OwnerID != "" {
		query = query.Where(squirrel.Eq{"owner_id": filter.OwnerID})
	}
	if filter.Text != "" {
		pattern := "%" + filter.Text + "%"
		query = query.
			Where(squirrel.Eq{"available": true}).
			Where(squirrel.Or{
				squirrel.ILike{"name": pattern},
				squirrel.ILike{"description": pattern},
			})
	}

	sql, args, err := query.
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(filter.Page.Limit())).
		Offset(uint64(filter.Page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list items query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items failed: %w", err)
	}
	defer rows.Close()

	var items []*Item
	var total int

	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Available, &it.CreatedAt, &it.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan item failed: %w", err)
		}
		items = append(items, &it)
	}

	return items, total, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, it *Item) error {
	query, args, err := psql.Update("items").
		Set("name", it.Name).
		Set("description", it.Description).
		Set("available", it.Available).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": it.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update item query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update item failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("items").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete item query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete item failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
