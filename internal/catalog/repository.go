package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eatgreet/internal/domain"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrCategoryInUse    = errors.New("category has menu items")
)

type CatalogRepositoryInterface interface {
	ListCategories(ctx context.Context, restaurantID uuid.UUID) ([]domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) error
	UpdateCategory(ctx context.Context, cat *domain.Category) error
	DeleteCategory(ctx context.Context, restaurantID, id uuid.UUID) error

	ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, restaurantID, id uuid.UUID) (domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, restaurantID, id uuid.UUID) error
}

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepositoryInterface {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListCategories(ctx context.Context, restaurantID uuid.UUID) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, sort_order, created_at
		FROM categories
		WHERE restaurant_id = $1
		ORDER BY sort_order ASC, created_at ASC`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, cat *domain.Category) error {
	cat.ID = uuid.New()
	cat.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, restaurant_id, name, sort_order, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		cat.ID, cat.RestaurantID, cat.Name, cat.SortOrder, cat.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateCategory(ctx context.Context, cat *domain.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $1, sort_order = $2
		WHERE id = $3 AND restaurant_id = $4`,
		cat.Name, cat.SortOrder, cat.ID, cat.RestaurantID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *CatalogRepository) DeleteCategory(ctx context.Context, restaurantID, id uuid.UUID) error {
	var inUse bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM menu_items WHERE category_id = $1)`, id,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("check category use: %w", err)
	}
	if inUse {
		return ErrCategoryInUse
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM categories WHERE id = $1 AND restaurant_id = $2`, id, restaurantID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *CatalogRepository) ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, category_id, name, description, price, image_url, is_available, created_at, updated_at
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY created_at ASC`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CatalogRepository) GetMenuItem(ctx context.Context, restaurantID, id uuid.UUID) (domain.MenuItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, category_id, name, description, price, image_url, is_available, created_at, updated_at
		FROM menu_items
		WHERE id = $1 AND restaurant_id = $2`, id, restaurantID)
	item, err := scanMenuItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MenuItem{}, ErrMenuItemNotFound
	}
	return item, err
}

func (r *CatalogRepository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	item.ID = uuid.New()
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, restaurant_id, category_id, name, description, price, image_url, is_available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)`,
		item.ID, item.RestaurantID, nilUUID(item.CategoryID), item.Name, item.Description,
		item.Price, item.ImageURL, item.IsAvailable, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	item.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE menu_items
		SET category_id = $1, name = $2, description = $3, price = $4,
		    image_url = $5, is_available = $6, updated_at = $7
		WHERE id = $8 AND restaurant_id = $9`,
		nilUUID(item.CategoryID), item.Name, item.Description, item.Price,
		item.ImageURL, item.IsAvailable, item.UpdatedAt, item.ID, item.RestaurantID)
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

func (r *CatalogRepository) DeleteMenuItem(ctx context.Context, restaurantID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2`, id, restaurantID)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(row rowScanner) (domain.MenuItem, error) {
	var (
		item     domain.MenuItem
		category *uuid.UUID
	)
	err := row.Scan(&item.ID, &item.RestaurantID, &category, &item.Name,
		&item.Description, &item.Price, &item.ImageURL, &item.IsAvailable,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if category != nil {
		item.CategoryID = *category
	}
	return item, nil
}

func nilUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
