package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"eatgreet/internal/domain"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	ErrNotFound = errors.New("order not found")
	// ErrTableOccupied is returned when a different customer holds the table.
	ErrTableOccupied     = errors.New("table is occupied by another customer")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoSuchItem        = errors.New("order has no such item")
	ErrNoSuchRound       = errors.New("order has no such round")
)

type OrdersRepositoryInterface interface {
	// CreateOrAppendTx atomically either inserts a fresh order or, when the
	// same phone already holds the table, appends draft.Items as a new round.
	// The bool result reports whether a new order was created.
	CreateOrAppendTx(ctx context.Context, draft domain.Order) (domain.Order, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error)
	List(ctx context.Context, restaurantID uuid.UUID, statuses []domain.OrderStatus, limit int) ([]domain.Order, error)
	ListCompletedSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]domain.Order, error)
	ActiveByTable(ctx context.Context, restaurantID uuid.UUID, tableNumber string) (domain.Order, bool, error)
	AdvanceStatusTx(ctx context.Context, id uuid.UUID, changedBy string) (domain.Order, error)
	SetStatusTx(ctx context.Context, id uuid.UUID, status domain.OrderStatus, payment domain.PaymentStatus, changedBy string) (domain.Order, error)
	UpdateItemStatusTx(ctx context.Context, id uuid.UUID, idx int, to domain.ItemStatus, changedBy string) (domain.Order, error)
	UpdateRoundStatusTx(ctx context.Context, id uuid.UUID, roundStart time.Time, window time.Duration, to domain.ItemStatus, changedBy string) (domain.Order, error)
}

type OrdersRepository struct {
	db *sql.DB
}

func NewOrdersRepository(db *sql.DB) OrdersRepositoryInterface {
	return &OrdersRepository{db: db}
}

func (r *OrdersRepository) CreateOrAppendTx(ctx context.Context, draft domain.Order) (domain.Order, bool, error) {
	order, created, err := r.createOrAppend(ctx, draft)
	if isUniqueViolation(err) {
		// Another request claimed the table between our occupancy check and
		// the insert; the partial unique index on active (restaurant_id,
		// table_number) rows rejected the duplicate. A second attempt sees
		// the committed order and takes the append-or-conflict path.
		order, created, err = r.createOrAppend(ctx, draft)
		if isUniqueViolation(err) {
			return domain.Order{}, false, ErrTableOccupied
		}
	}
	return order, created, err
}

func (r *OrdersRepository) createOrAppend(ctx context.Context, draft domain.Order) (domain.Order, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Occupancy check: when the table already has an active order its row
	// is locked here, serialising appends. When it has none there is no row
	// to lock, so the free-table race is settled by idx_orders_table.
	if !draft.Takeaway() {
		var existingID uuid.UUID
		var phone, instruction string
		err := tx.QueryRowContext(ctx, `
			SELECT id, customer_phone, instruction FROM orders
			WHERE restaurant_id=$1 AND table_number=$2
			  AND status IN ('pending','preparing','ready')
			FOR UPDATE`,
			draft.RestaurantID, *draft.TableNumber).Scan(&existingID, &phone, &instruction)
		switch {
		case err == nil:
			if phone != draft.CustomerInfo.Phone {
				return domain.Order{}, false, ErrTableOccupied
			}
			if err := r.appendRound(ctx, tx, existingID, draft, instruction); err != nil {
				return domain.Order{}, false, err
			}
			if err := tx.Commit(); err != nil {
				return domain.Order{}, false, fmt.Errorf("commit: %w", err)
			}
			order, err := r.GetByID(ctx, existingID)
			return order, false, err
		case !errors.Is(err, sql.ErrNoRows):
			return domain.Order{}, false, fmt.Errorf("occupancy check: %w", err)
		}
	}

	id, err := r.insertOrder(ctx, tx, draft)
	if err != nil {
		return domain.Order{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, false, fmt.Errorf("commit: %w", err)
	}
	order, err := r.GetByID(ctx, id)
	return order, true, err
}

func (r *OrdersRepository) insertOrder(ctx context.Context, tx *sql.Tx, draft domain.Order) (uuid.UUID, error) {
	// Per-day display numbering, assigned under the same transaction.
	var seq int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)+1 FROM orders
		WHERE restaurant_id=$1 AND created_at >= date_trunc('day', now())`,
		draft.RestaurantID).Scan(&seq); err != nil {
		return uuid.Nil, fmt.Errorf("daily sequence: %w", err)
	}

	id := uuid.New()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, restaurant_id, table_number, customer_name, customer_phone,
			customer_ref, status, payment_status, instruction, total_amount, daily_sequence,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,'pending','pending',$7,$8,$9,now(),now())`,
		id, draft.RestaurantID, draft.TableNumber, draft.CustomerInfo.Name,
		draft.CustomerInfo.Phone, nullIfEmpty(draft.CustomerInfo.ID),
		draft.Instruction, draft.TotalAmount, seq); err != nil {
		return uuid.Nil, fmt.Errorf("insert order: %w", err)
	}
	if err := insertItems(ctx, tx, id, draft.Items); err != nil {
		return uuid.Nil, err
	}
	if err := logStatus(ctx, tx, id, string(domain.OrderPending), "order-service"); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// appendRound adds the new items to a running order. Prior item rows are
// never touched; totals grow by the (tax-inclusive) amount of the new round.
func (r *OrdersRepository) appendRound(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, draft domain.Order, existingInstruction string) error {
	if err := insertItems(ctx, tx, orderID, draft.Items); err != nil {
		return err
	}
	instruction := existingInstruction
	if draft.Instruction != "" {
		if instruction != "" {
			instruction += " | " + draft.Instruction
		} else {
			instruction = draft.Instruction
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET total_amount = total_amount + $2, instruction = $3, updated_at = now()
		WHERE id = $1`,
		orderID, draft.TotalAmount, instruction); err != nil {
		return fmt.Errorf("append round: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, items []domain.OrderItem) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, name, price, quantity, status, added_at)
			VALUES ($1,$2,$3,$4,$5,$6,'pending',now())`,
			uuid.New(), orderID, nilUUID(it.MenuItemID), it.Name, it.Price, it.Quantity); err != nil {
			return fmt.Errorf("insert item %s: %w", it.Name, err)
		}
	}
	return nil
}

func logStatus(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, status, changedBy string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1,$2,$3,now())`, orderID, status, changedBy); err != nil {
		return fmt.Errorf("status log: %w", err)
	}
	return nil
}

const orderColumns = `
	o.id, o.restaurant_id, r.name, o.table_number, o.customer_name, o.customer_phone,
	COALESCE(o.customer_ref,''), o.status, o.payment_status, o.instruction,
	o.total_amount, o.daily_sequence, o.created_at, o.updated_at`

func (r *OrdersRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.loadItems(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *OrdersRepository) List(ctx context.Context, restaurantID uuid.UUID, statuses []domain.OrderStatus, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + orderColumns + ` FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.restaurant_id = $1`
	args := []any{restaurantID}
	if len(statuses) > 0 {
		ph := make([]string, len(statuses))
		for i, s := range statuses {
			args = append(args, string(s))
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		query += ` AND o.status IN (` + strings.Join(ph, ",") + `)`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d`, len(args))

	return r.queryOrders(ctx, query, args...)
}

func (r *OrdersRepository) ListCompletedSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]domain.Order, error) {
	return r.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.restaurant_id = $1 AND o.status = 'completed' AND o.updated_at >= $2
		ORDER BY o.updated_at ASC`, restaurantID, since)
}

func (r *OrdersRepository) ActiveByTable(ctx context.Context, restaurantID uuid.UUID, tableNumber string) (domain.Order, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.restaurant_id=$1 AND o.table_number=$2
		  AND o.status IN ('pending','preparing','ready')`,
		restaurantID, tableNumber)
	order, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, false, err
	}
	order.Items = items
	return order, true, nil
}

func (r *OrdersRepository) AdvanceStatusTx(ctx context.Context, id uuid.UUID, changedBy string) (domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := lockStatus(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}
	next, ok := current.Next()
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s has no next status", ErrInvalidTransition, current)
	}
	if err := setStatus(ctx, tx, id, next, changedBy); err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *OrdersRepository) SetStatusTx(ctx context.Context, id uuid.UUID, status domain.OrderStatus, payment domain.PaymentStatus, changedBy string) (domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := lockStatus(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if status != "" {
		if !current.CanTransition(status) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
		}
		if err := setStatus(ctx, tx, id, status, changedBy); err != nil {
			return domain.Order{}, err
		}
	}
	if payment != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status=$2, updated_at=now() WHERE id=$1`,
			id, payment); err != nil {
			return domain.Order{}, fmt.Errorf("set payment status: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *OrdersRepository) UpdateItemStatusTx(ctx context.Context, id uuid.UUID, idx int, to domain.ItemStatus, changedBy string) (domain.Order, error) {
	return r.updateItemsTx(ctx, id, changedBy, func(items []domain.OrderItem) ([]uuid.UUID, error) {
		if idx < 0 || idx >= len(items) {
			return nil, fmt.Errorf("%w: index %d of %d", ErrNoSuchItem, idx, len(items))
		}
		if !items[idx].Status.CanTransition(to) {
			return nil, fmt.Errorf("%w: item %q %s -> %s", ErrInvalidTransition, items[idx].Name, items[idx].Status, to)
		}
		return []uuid.UUID{items[idx].ID}, nil
	}, to)
}

func (r *OrdersRepository) UpdateRoundStatusTx(ctx context.Context, id uuid.UUID, roundStart time.Time, window time.Duration, to domain.ItemStatus, changedBy string) (domain.Order, error) {
	return r.updateItemsTx(ctx, id, changedBy, func(items []domain.OrderItem) ([]uuid.UUID, error) {
		for _, round := range domain.Rounds(items, window) {
			if !round.StartedAt.Equal(roundStart) {
				continue
			}
			ids := make([]uuid.UUID, 0, len(round.Items))
			for _, it := range round.Items {
				if !it.Status.CanTransition(to) {
					return nil, fmt.Errorf("%w: item %q %s -> %s", ErrInvalidTransition, it.Name, it.Status, to)
				}
				ids = append(ids, it.ID)
			}
			return ids, nil
		}
		return nil, fmt.Errorf("%w: no round started at %s", ErrNoSuchRound, roundStart.Format(time.RFC3339))
	}, to)
}

// updateItemsTx locks the order row, lets pick choose item ids off the
// current snapshot, and applies the transition to all of them atomically.
func (r *OrdersRepository) updateItemsTx(ctx context.Context, id uuid.UUID, changedBy string,
	pick func(items []domain.OrderItem) ([]uuid.UUID, error), to domain.ItemStatus) (domain.Order, error) {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lockStatus(ctx, tx, id); err != nil {
		return domain.Order{}, err
	}
	items, err := loadItemsTx(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}
	ids, err := pick(items)
	if err != nil {
		return domain.Order{}, err
	}
	for _, itemID := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE order_items SET status=$2 WHERE id=$1`, itemID, to); err != nil {
			return domain.Order{}, fmt.Errorf("update item status: %w", err)
		}
	}
	if err := logStatus(ctx, tx, id, "items:"+string(to), changedBy); err != nil {
		return domain.Order{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET updated_at=now() WHERE id=$1`, id); err != nil {
		return domain.Order{}, fmt.Errorf("touch order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetByID(ctx, id)
}

func lockStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID) (domain.OrderStatus, error) {
	var s string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock order: %w", err)
	}
	return domain.OrderStatus(s), nil
}

func setStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, to domain.OrderStatus, changedBy string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, to); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return logStatus(ctx, tx, id, string(to), changedBy)
}

func (r *OrdersRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		order, err := scanOrderRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *OrdersRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(menu_item_id,'00000000-0000-0000-0000-000000000000'),
		       name, price, quantity, status, added_at
		FROM order_items WHERE order_id=$1
		ORDER BY added_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func loadItemsTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, COALESCE(menu_item_id,'00000000-0000-0000-0000-000000000000'),
		       name, price, quantity, status, added_at
		FROM order_items WHERE order_id=$1
		ORDER BY added_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.MenuItemID, &it.Name, &it.Price,
			&it.Quantity, &it.Status, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanOrder(row *sql.Row) (domain.Order, error) {
	order, err := scanOrderFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrNotFound
	}
	return order, err
}

func scanOrderRows(rows *sql.Rows) (domain.Order, error) {
	return scanOrderFrom(rows)
}

func scanOrderFrom(s rowScanner) (domain.Order, error) {
	var o domain.Order
	var table sql.NullString
	if err := s.Scan(&o.ID, &o.RestaurantID, &o.RestaurantName, &table,
		&o.CustomerInfo.Name, &o.CustomerInfo.Phone, &o.CustomerInfo.ID,
		&o.Status, &o.PaymentStatus, &o.Instruction, &o.TotalAmount,
		&o.DailySequence, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	if table.Valid {
		o.TableNumber = &table.String
	}
	return o, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
