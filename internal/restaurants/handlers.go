package restaurants

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eatgreet/internal/common/httpx"
	"eatgreet/internal/domain"
)

type Handler struct {
	repo RestaurantsRepositoryInterface
}

func NewHandler(repo RestaurantsRepositoryInterface) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetBySlug(c *gin.Context) {
	slug := domain.Slugify(c.Param("slug"))
	restaurant, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", "invalid restaurant id")
		return
	}
	restaurant, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) notFoundOr500(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(c, http.StatusNotFound, "not_found", err.Error())
		return
	}
	httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
}
