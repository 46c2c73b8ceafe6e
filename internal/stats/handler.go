package stats

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eatgreet/internal/common/httpx"
	"eatgreet/internal/orders"
	"eatgreet/internal/tenant"
)

type Handler struct {
	repo   StatsRepositoryInterface
	orders orders.OrdersRepositoryInterface
}

func NewHandler(repo StatsRepositoryInterface, ordersRepo orders.OrdersRepositoryInterface) *Handler {
	return &Handler{repo: repo, orders: ordersRepo}
}

// Sales handles GET /api/stats/sales.
func (h *Handler) Sales(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	now := time.Now().UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	completed, err := h.orders.ListCompletedSince(c.Request.Context(), restaurant.ID, yearStart)
	if err != nil {
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, FoldSales(completed, now))
}

// Admin handles GET /api/stats/admin.
func (h *Handler) Admin(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	s, err := h.repo.Admin(c.Request.Context(), restaurant.ID)
	if err != nil {
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, s)
}

// Super handles GET /api/stats/super. Route is limited to superadmins.
func (h *Handler) Super(c *gin.Context) {
	s, err := h.repo.Super(c.Request.Context())
	if err != nil {
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, s)
}
