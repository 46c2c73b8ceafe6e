package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eatgreet/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

type UsersRepositoryInterface interface {
	CreateUserTx(ctx context.Context, u domain.User, restaurant *domain.Restaurant) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (domain.User, error)
}

type UsersRepository struct {
	db *sql.DB
}

func NewUsersRepository(db *sql.DB) UsersRepositoryInterface {
	return &UsersRepository{db: db}
}

// CreateUserTx inserts the user and, for admin signups, the restaurant row in
// one transaction. An existing slug attaches the user to that restaurant
// instead of failing.
func (r *UsersRepository) CreateUserTx(ctx context.Context, u domain.User, restaurant *domain.Restaurant) (domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if restaurant != nil {
		var existing uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM restaurants WHERE slug=$1`, restaurant.Slug).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			restaurant.ID = uuid.New()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO restaurants (id, name, slug, total_tables, is_active, created_at)
				VALUES ($1,$2,$3,$4,TRUE,now())`,
				restaurant.ID, restaurant.Name, restaurant.Slug, restaurant.TotalTables); err != nil {
				return domain.User{}, fmt.Errorf("insert restaurant: %w", err)
			}
		case err != nil:
			return domain.User{}, fmt.Errorf("lookup restaurant: %w", err)
		default:
			restaurant.ID = existing
		}
		u.RestaurantID = restaurant.ID
		u.RestaurantName = restaurant.Name
	}

	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, password_hash, role, restaurant_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, nilUUID(u.RestaurantID), u.CreatedAt); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

const userColumns = `
	u.id, u.name, u.email, u.phone, u.password_hash, u.role,
	COALESCE(u.restaurant_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(r.name, ''), u.created_at`

func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u LEFT JOIN restaurants r ON r.id = u.restaurant_id
		WHERE LOWER(u.email) = LOWER($1)`, email)
	return scanUser(row)
}

func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u LEFT JOIN restaurants r ON r.id = u.restaurant_id
		WHERE u.id = $1`, id)
	return scanUser(row)
}

func (r *UsersRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (domain.User, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET name=$2, phone=$3 WHERE id=$1`, id, name, phone); err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return r.GetByID(ctx, id)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.RestaurantID, &u.RestaurantName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func nilUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
