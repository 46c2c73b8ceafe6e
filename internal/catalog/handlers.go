package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/common/httpx"
	"eatgreet/internal/domain"
	"eatgreet/internal/events"
	"eatgreet/internal/tenant"
)

// Handler serves the public menu reads and the admin catalog mutations.
// Every mutation broadcasts so customer menus refresh without a reload.
type Handler struct {
	repo CatalogRepositoryInterface
	pub  events.PublisherInterface
	log  *logrus.Entry
}

func NewHandler(repo CatalogRepositoryInterface, pub events.PublisherInterface, log *logrus.Entry) *Handler {
	return &Handler{repo: repo, pub: pub, log: log}
}

func (h *Handler) ListCategories(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	cats, err := h.repo.ListCategories(c.Request.Context(), restaurant.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	var req struct {
		Name      string `json:"name" binding:"required"`
		SortOrder int    `json:"sortOrder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	cat := domain.Category{RestaurantID: restaurant.ID, Name: req.Name, SortOrder: req.SortOrder}
	if err := h.repo.CreateCategory(c.Request.Context(), &cat); err != nil {
		h.fail(c, err)
		return
	}
	h.emit(c, restaurant.Slug, domain.EventCategoryUpdated, "create", cat)
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req struct {
		Name      string `json:"name" binding:"required"`
		SortOrder int    `json:"sortOrder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	cat := domain.Category{ID: id, RestaurantID: restaurant.ID, Name: req.Name, SortOrder: req.SortOrder}
	if err := h.repo.UpdateCategory(c.Request.Context(), &cat); err != nil {
		h.fail(c, err)
		return
	}
	h.emit(c, restaurant.Slug, domain.EventCategoryUpdated, "update", cat)
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(c.Request.Context(), restaurant.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	h.emit(c, restaurant.Slug, domain.EventCategoryUpdated, "delete", gin.H{"id": id})
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMenu(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	items, err := h.repo.ListMenuItems(c.Request.Context(), restaurant.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []domain.MenuItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMenuItem(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	item, err := h.repo.GetMenuItem(c.Request.Context(), restaurant.ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type menuItemRequest struct {
	CategoryID  uuid.UUID `json:"categoryId"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Price       float64   `json:"price" binding:"min=0"`
	ImageURL    string    `json:"imageUrl"`
	IsAvailable *bool     `json:"isAvailable"`
}

func (r menuItemRequest) available() bool {
	if r.IsAvailable == nil {
		return true
	}
	return *r.IsAvailable
}

func (h *Handler) CreateMenuItem(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	item := domain.MenuItem{
		RestaurantID: restaurant.ID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		IsAvailable:  req.available(),
	}
	if err := h.repo.CreateMenuItem(c.Request.Context(), &item); err != nil {
		h.fail(c, err)
		return
	}
	h.emit(c, restaurant.Slug, domain.EventMenuUpdated, "create", item)
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	item := domain.MenuItem{
		ID:           id,
		RestaurantID: restaurant.ID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		IsAvailable:  req.available(),
	}
	if err := h.repo.UpdateMenuItem(c.Request.Context(), &item); err != nil {
		h.fail(c, err)
		return
	}
	h.emit(c, restaurant.Slug, domain.EventMenuUpdated, "update", item)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	restaurant, _ := tenant.FromContext(c)
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteMenuItem(c.Request.Context(), restaurant.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	h.emit(c, restaurant.Slug, domain.EventMenuUpdated, "delete", gin.H{"id": id})
	c.Status(http.StatusNoContent)
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// emit broadcasts a catalog change. A broker hiccup never fails the write,
// clients fall back to polling.
func (h *Handler) emit(c *gin.Context, slug, event, action string, data any) {
	if err := h.pub.Resource(c.Request.Context(), slug, event, action, data); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"event":      event,
			"restaurant": slug,
		}).Warn("broadcast_failed")
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrMenuItemNotFound):
		httpx.Problem(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrCategoryInUse):
		httpx.Problem(c, http.StatusConflict, "category_in_use", err.Error())
	default:
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
	}
}
