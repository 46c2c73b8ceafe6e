package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eatgreet/internal/common/httpx"
)

type Handler struct {
	svc AuthServiceInterface
}

func NewHandler(svc AuthServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	session, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			httpx.Problem(c, http.StatusConflict, "email_taken", err.Error())
		case errors.Is(err, ErrValidation):
			httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		default:
			httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(c, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) GetProfile(c *gin.Context) {
	claims, _ := ClaimsFrom(c)
	user, err := h.svc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Problem(c, http.StatusNotFound, "not_found", "account no longer exists")
			return
		}
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	claims, _ := ClaimsFrom(c)
	var req struct {
		Name  string `json:"name" binding:"required"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), claims.UserID, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		httpx.Problem(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}
