package restaurants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eatgreet/internal/domain"
)

var ErrNotFound = errors.New("restaurant not found")

type RestaurantsRepositoryInterface interface {
	GetBySlug(ctx context.Context, slug string) (domain.Restaurant, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Restaurant, error)
	List(ctx context.Context) ([]domain.Restaurant, error)
}

type RestaurantsRepository struct {
	db *sql.DB
}

func NewRestaurantsRepository(db *sql.DB) RestaurantsRepositoryInterface {
	return &RestaurantsRepository{db: db}
}

const columns = `id, name, slug, total_tables, is_active, created_at`

func (r *RestaurantsRepository) GetBySlug(ctx context.Context, slug string) (domain.Restaurant, error) {
	return scan(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM restaurants WHERE slug=$1`, slug))
}

func (r *RestaurantsRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Restaurant, error) {
	return scan(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM restaurants WHERE id=$1`, id))
}

func (r *RestaurantsRepository) List(ctx context.Context) ([]domain.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM restaurants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	var out []domain.Restaurant
	for rows.Next() {
		var rest domain.Restaurant
		if err := rows.Scan(&rest.ID, &rest.Name, &rest.Slug, &rest.TotalTables,
			&rest.IsActive, &rest.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

func scan(row *sql.Row) (domain.Restaurant, error) {
	var rest domain.Restaurant
	err := row.Scan(&rest.ID, &rest.Name, &rest.Slug, &rest.TotalTables,
		&rest.IsActive, &rest.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Restaurant{}, ErrNotFound
	}
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("scan restaurant: %w", err)
	}
	return rest, nil
}
