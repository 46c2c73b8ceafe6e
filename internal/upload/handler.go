// Package upload signs direct-to-CDN image uploads so menu photos never
// pass through the API servers, and handles best-effort cleanup of
// replaced assets.
package upload

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/common/httpx"
	"eatgreet/internal/config"
)

type Handler struct {
	cfg    config.UploadConfig
	client *http.Client
	log    *logrus.Entry
}

func NewHandler(cfg config.UploadConfig, log *logrus.Entry) *Handler {
	return &Handler{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

// Signature handles POST /api/upload/signature. The browser sends the
// upload params it intends to use; the response carries the signature the
// CDN verifies, so the API secret never reaches the client.
func (h *Handler) Signature(c *gin.Context) {
	if h.cfg.APISecret == "" {
		httpx.Problem(c, http.StatusServiceUnavailable, "upload_disabled", "no upload credentials configured")
		return
	}
	var req struct {
		Folder   string `json:"folder"`
		PublicID string `json:"publicId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	ts := time.Now().Unix()
	params := map[string]string{"timestamp": strconv.FormatInt(ts, 10)}
	if req.Folder != "" {
		params["folder"] = req.Folder
	}
	if req.PublicID != "" {
		params["public_id"] = req.PublicID
	}

	c.JSON(http.StatusOK, gin.H{
		"signature": sign(params, h.cfg.APISecret),
		"timestamp": ts,
		"apiKey":    h.cfg.APIKey,
		"cloudName": h.cfg.CloudName,
		"folder":    req.Folder,
	})
}

// Cleanup handles POST /api/upload/cleanup. Deleting the old asset is
// fire-and-forget; a failure only leaks storage, so it is logged and the
// caller always gets 202.
func (h *Handler) Cleanup(c *gin.Context) {
	var req struct {
		PublicID string `json:"publicId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Problem(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	go h.destroy(req.PublicID)
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (h *Handler) destroy(publicID string) {
	if h.cfg.APISecret == "" {
		return
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{"public_id": publicID, "timestamp": ts}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", h.cfg.APIKey)
	form.Set("signature", sign(params, h.cfg.APISecret))

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/destroy", h.cfg.CloudName)
	resp, err := h.client.PostForm(endpoint, form)
	if err != nil {
		h.log.WithError(err).WithField("public_id", publicID).Warn("asset cleanup failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		h.log.WithFields(logrus.Fields{
			"public_id": publicID,
			"status":    resp.StatusCode,
		}).Warn("asset cleanup rejected")
	}
}

// sign implements the CDN's request signing: params sorted by key, joined
// as k=v with &, secret appended, SHA-1 hex.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	digest := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(digest[:])
}
