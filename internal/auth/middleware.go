package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eatgreet/internal/common/httpx"
	"eatgreet/internal/domain"
)

const claimsKey = "auth.claims"

// Middleware rejects requests without a valid bearer token.
func Middleware(svc AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			httpx.Problem(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		claims, err := svc.ParseToken(token)
		if err != nil {
			httpx.Problem(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Optional attaches claims when a valid token is present but lets anonymous
// requests through. The tenant middleware uses it for public customer routes.
func Optional(svc AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := bearerToken(c); err == nil {
			if claims, err := svc.ParseToken(token); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			httpx.Problem(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !allowed[claims.Role] {
			httpx.Problem(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) (string, error) {
	h := c.GetHeader("Authorization")
	if h == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}
