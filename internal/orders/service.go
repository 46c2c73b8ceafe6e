package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/config"
	"eatgreet/internal/domain"
	"eatgreet/internal/events"
)

var ErrValidation = errors.New("validation failed")

const minPhoneLen = 10

// KitchenOrder is the kitchen display projection: the order with its items
// grouped into rounds and the default prep estimate applied.
type KitchenOrder struct {
	domain.Order
	Rounds           []domain.Round `json:"rounds"`
	EstimatedReadyAt time.Time      `json:"estimatedReadyAt"`
}

// CreateResult reports whether checkout opened a new order or appended a
// round to the table's running order.
type CreateResult struct {
	Order   domain.Order
	Created bool
}

type OrdersServiceInterface interface {
	Create(ctx context.Context, restaurant domain.Restaurant, req domain.CreateOrderRequest) (CreateResult, error)
	Get(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID) (domain.Order, error)
	List(ctx context.Context, restaurant domain.Restaurant, statuses []domain.OrderStatus, limit int) ([]domain.Order, error)
	Advance(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, changedBy string) (domain.Order, error)
	SetStatus(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, req domain.UpdateOrderStatusRequest, changedBy string) (domain.Order, error)
	UpdateItemStatus(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, idx int, to domain.ItemStatus, changedBy string) (domain.Order, error)
	UpdateRoundStatus(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, req domain.UpdateRoundStatusRequest, changedBy string) (domain.Order, error)
	TableStatus(ctx context.Context, restaurant domain.Restaurant, tableNumber string) (domain.TableStatusResponse, error)
	KitchenOrders(ctx context.Context, restaurant domain.Restaurant) ([]KitchenOrder, error)
}

type OrdersService struct {
	repo OrdersRepositoryInterface
	pub  events.PublisherInterface
	cfg  config.OrdersConfig
	log  *logrus.Entry
}

func NewOrdersService(repo OrdersRepositoryInterface, pub events.PublisherInterface, cfg config.OrdersConfig, log *logrus.Entry) OrdersServiceInterface {
	return &OrdersService{repo: repo, pub: pub, cfg: cfg, log: log}
}

func (s *OrdersService) Create(ctx context.Context, restaurant domain.Restaurant, req domain.CreateOrderRequest) (CreateResult, error) {
	if err := validateCreate(req); err != nil {
		return CreateResult{}, err
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	subtotal := 0.0
	for _, line := range req.Items {
		menuID, _ := uuid.Parse(line.MenuItemID)
		items = append(items, domain.OrderItem{
			MenuItemID: menuID,
			Name:       line.Name,
			Price:      line.Price,
			Quantity:   line.Quantity,
			Status:     domain.ItemPending,
		})
		subtotal += line.Price * float64(line.Quantity)
	}

	draft := domain.Order{
		RestaurantID: restaurant.ID,
		CustomerInfo: req.CustomerInfo,
		Items:        items,
		Instruction:  strings.TrimSpace(req.Instruction),
		TotalAmount:  round2(subtotal * (1 + s.cfg.TaxRate)),
	}
	if !req.Takeaway {
		table := strings.TrimSpace(req.TableNumber)
		draft.TableNumber = &table
	}

	order, created, err := s.repo.CreateOrAppendTx(ctx, draft)
	if err != nil {
		return CreateResult{}, err
	}

	action := "update"
	if created {
		action = "create"
	}
	s.emitOrder(ctx, restaurant.Slug, action, order)
	s.log.WithFields(logrus.Fields{
		"order_id": order.ID, "restaurant": restaurant.Slug,
		"daily_sequence": order.DailySequence, "created": created,
	}).Info("order_received")
	return CreateResult{Order: order, Created: created}, nil
}

func (s *OrdersService) Get(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID) (domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.RestaurantID != restaurant.ID {
		return domain.Order{}, ErrNotFound
	}
	return order, nil
}

func (s *OrdersService) List(ctx context.Context, restaurant domain.Restaurant, statuses []domain.OrderStatus, limit int) ([]domain.Order, error) {
	for _, st := range statuses {
		if !domain.ValidOrderStatus(st) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, st)
		}
	}
	return s.repo.List(ctx, restaurant.ID, statuses, limit)
}

func (s *OrdersService) Advance(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, changedBy string) (domain.Order, error) {
	if _, err := s.Get(ctx, restaurant, id); err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.AdvanceStatusTx(ctx, id, changedBy)
	if err != nil {
		return domain.Order{}, err
	}
	s.emitOrder(ctx, restaurant.Slug, "update", order)
	return order, nil
}

func (s *OrdersService) SetStatus(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, req domain.UpdateOrderStatusRequest, changedBy string) (domain.Order, error) {
	if req.Status == "" && req.PaymentStatus == "" {
		return domain.Order{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if req.Status != "" && !domain.ValidOrderStatus(req.Status) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	if req.PaymentStatus != "" && !domain.ValidPaymentStatus(req.PaymentStatus) {
		return domain.Order{}, fmt.Errorf("%w: unknown payment status %q", ErrValidation, req.PaymentStatus)
	}
	if _, err := s.Get(ctx, restaurant, id); err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.SetStatusTx(ctx, id, req.Status, req.PaymentStatus, changedBy)
	if err != nil {
		return domain.Order{}, err
	}
	s.emitOrder(ctx, restaurant.Slug, "update", order)
	return order, nil
}

func (s *OrdersService) UpdateItemStatus(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, idx int, to domain.ItemStatus, changedBy string) (domain.Order, error) {
	if !domain.ValidItemStatus(to) {
		return domain.Order{}, fmt.Errorf("%w: unknown item status %q", ErrValidation, to)
	}
	if _, err := s.Get(ctx, restaurant, id); err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.UpdateItemStatusTx(ctx, id, idx, to, changedBy)
	if err != nil {
		return domain.Order{}, err
	}
	s.emitOrder(ctx, restaurant.Slug, "update", order)
	return order, nil
}

func (s *OrdersService) UpdateRoundStatus(ctx context.Context, restaurant domain.Restaurant, id uuid.UUID, req domain.UpdateRoundStatusRequest, changedBy string) (domain.Order, error) {
	if !domain.ValidItemStatus(req.Status) {
		return domain.Order{}, fmt.Errorf("%w: unknown item status %q", ErrValidation, req.Status)
	}
	roundStart, err := time.Parse(time.RFC3339Nano, req.RoundStartedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: roundStartedAt must be RFC3339", ErrValidation)
	}
	if _, err := s.Get(ctx, restaurant, id); err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.UpdateRoundStatusTx(ctx, id, roundStart, s.cfg.RoundWindow, req.Status, changedBy)
	if err != nil {
		return domain.Order{}, err
	}
	s.emitOrder(ctx, restaurant.Slug, "update", order)
	return order, nil
}

// TableStatus answers the occupancy check. The returned phone is the stored
// one so a returning customer can re-attach by matching it; that weak
// re-identification is a documented platform limitation.
func (s *OrdersService) TableStatus(ctx context.Context, restaurant domain.Restaurant, tableNumber string) (domain.TableStatusResponse, error) {
	order, ok, err := s.repo.ActiveByTable(ctx, restaurant.ID, tableNumber)
	if err != nil {
		return domain.TableStatusResponse{}, err
	}
	if !ok {
		return domain.TableStatusResponse{Status: "free"}, nil
	}
	customer := order.CustomerInfo
	return domain.TableStatusResponse{
		Status:   "occupied",
		Customer: &customer,
		OrderID:  order.ID.String(),
	}, nil
}

func (s *OrdersService) KitchenOrders(ctx context.Context, restaurant domain.Restaurant) ([]KitchenOrder, error) {
	active, err := s.repo.List(ctx, restaurant.ID, domain.ActiveOrderStatuses, 0)
	if err != nil {
		return nil, err
	}
	out := make([]KitchenOrder, 0, len(active))
	for _, order := range active {
		out = append(out, KitchenOrder{
			Order:            order,
			Rounds:           domain.Rounds(order.Items, s.cfg.RoundWindow),
			EstimatedReadyAt: order.CreatedAt.Add(s.cfg.PrepEstimate),
		})
	}
	return out, nil
}

// emitOrder publishes the broadcast after the store committed. Failures are
// logged and swallowed: the dashboards' poll cycle is the backstop.
func (s *OrdersService) emitOrder(ctx context.Context, slug, action string, order domain.Order) {
	if err := s.pub.OrderUpdated(ctx, slug, action, order); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": order.ID, "restaurant": slug,
		}).Error("broadcast_failed")
	}
}

func validateCreate(req domain.CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerInfo.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if len(strings.TrimSpace(req.CustomerInfo.Phone)) < minPhoneLen {
		return fmt.Errorf("%w: phone must be at least %d characters", ErrValidation, minPhoneLen)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: invalid quantity for item %q", ErrValidation, it.Name)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: invalid price for item %q", ErrValidation, it.Name)
		}
	}
	if !req.Takeaway && strings.TrimSpace(req.TableNumber) == "" {
		return fmt.Errorf("%w: tableNumber is required unless takeaway is set", ErrValidation)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
