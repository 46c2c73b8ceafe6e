// Package tenant resolves which restaurant's data a request may touch.
// Resolution precedence mirrors the platform contract: an authenticated
// non-superadmin user's own restaurant always wins (an admin of one
// restaurant can never read another's data via query params), then the
// explicit header, query and body overrides used by public customer flows.
package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eatgreet/internal/auth"
	"eatgreet/internal/common/httpx"
	"eatgreet/internal/domain"
)

var ErrUnresolved = errors.New("restaurant name is required to resolve tenant")

const (
	tenantKey  = "tenant.restaurant"
	HeaderName = "X-Restaurant-Name"
)

// ResolverInterface looks a restaurant up by its slug.
type ResolverInterface interface {
	GetBySlug(ctx context.Context, slug string) (domain.Restaurant, error)
}

// Middleware resolves the tenant or fails the request with a 400. Any
// ambiguity about which tenant's data is being served is fatal, never
// silently defaulted.
func Middleware(resolver ResolverInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := resolveName(c)
		if name == "" {
			httpx.Problem(c, http.StatusBadRequest, "tenant_unresolved", ErrUnresolved.Error())
			return
		}
		restaurant, err := resolver.GetBySlug(c.Request.Context(), domain.Slugify(name))
		if err != nil {
			httpx.Problem(c, http.StatusBadRequest, "tenant_unresolved",
				"unknown restaurant: "+name)
			return
		}
		c.Set(tenantKey, restaurant)
		c.Next()
	}
}

// FromContext returns the resolved restaurant. Handlers behind Middleware
// may assume ok.
func FromContext(c *gin.Context) (domain.Restaurant, bool) {
	v, ok := c.Get(tenantKey)
	if !ok {
		return domain.Restaurant{}, false
	}
	r, ok := v.(domain.Restaurant)
	return r, ok
}

func resolveName(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok &&
		claims.Role != domain.RoleSuperAdmin && claims.RestaurantName != "" {
		return claims.RestaurantName
	}
	if v := c.GetHeader(HeaderName); v != "" {
		return v
	}
	if v := c.Query("restaurantName"); v != "" {
		return v
	}
	return nameFromBody(c)
}

// nameFromBody peeks at a JSON body for a restaurantName field, restoring
// the body so handlers can still bind it.
func nameFromBody(c *gin.Context) string {
	if c.Request.Body == nil || !strings.Contains(c.ContentType(), "application/json") {
		return ""
	}
	b, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return ""
	}
	var probe struct {
		RestaurantName string `json:"restaurantName"`
	}
	if json.Unmarshal(b, &probe) != nil {
		return ""
	}
	return probe.RestaurantName
}
