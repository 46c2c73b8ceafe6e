package orders

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eatgreet/internal/auth"
	"eatgreet/internal/common/httpx"
	"eatgreet/internal/domain"
	"eatgreet/internal/tenant"
)

type Handler struct {
	svc OrdersServiceInterface
}

func NewHandler(svc OrdersServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /api/orders. 201 for a fresh order, 200 when the
// round was appended to the table's running order.
func (h *Handler) Create(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	res, err := h.svc.Create(c.Request.Context(), restaurant, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Created {
		c.JSON(http.StatusCreated, res.Order)
		return
	}
	c.JSON(http.StatusOK, res.Order)
}

// List handles GET /api/orders?status=pending,preparing&limit=50.
func (h *Handler) List(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	var statuses []domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.OrderStatus(strings.TrimSpace(s)))
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := h.svc.List(c.Request.Context(), restaurant, statuses, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	order, err := h.svc.Get(c.Request.Context(), restaurant, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/:id/status. An empty body status
// with action=advance semantics is expressed by {"status":"<next>"}; the
// service rejects skips and reversals either way.
func (h *Handler) UpdateStatus(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req domain.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	order, err := h.svc.SetStatus(c.Request.Context(), restaurant, id, req, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Advance handles PUT /api/orders/:id/advance, the "next status" action.
func (h *Handler) Advance(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	order, err := h.svc.Advance(c.Request.Context(), restaurant, id, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateItemStatus handles PUT /api/orders/:id/items/:idx/status.
func (h *Handler) UpdateItemStatus(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", "invalid item index")
		return
	}
	var req domain.UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	order, err := h.svc.UpdateItemStatus(c.Request.Context(), restaurant, id, idx, req.Status, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateRoundStatus handles PUT /api/orders/:id/items/status, advancing a
// whole kitchen round in one transaction.
func (h *Handler) UpdateRoundStatus(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req domain.UpdateRoundStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	order, err := h.svc.UpdateRoundStatus(c.Request.Context(), restaurant, id, req, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// TableStatus handles GET /api/orders/table-status/:tableNumber.
func (h *Handler) TableStatus(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	res, err := h.svc.TableStatus(c.Request.Context(), restaurant, c.Param("tableNumber"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Kitchen handles GET /api/orders/kitchen/:restaurantName. The path segment
// is the tenant override for kitchen displays without a stored session.
func (h *Handler) Kitchen(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	list, err := h.svc.KitchenOrders(c.Request.Context(), restaurant)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) actor(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok {
		return string(claims.Role) + ":" + claims.UserID.String()
	}
	return "customer"
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoSuchItem), errors.Is(err, ErrNoSuchRound):
		httpx.Problem(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrTableOccupied):
		httpx.Problem(c, http.StatusConflict, "table_occupied", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(c, http.StatusConflict, "invalid_transition", err.Error())
	default:
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
	}
}
