package tenant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eatgreet/internal/auth"
	"eatgreet/internal/domain"
)

type fakeResolver struct {
	known map[string]domain.Restaurant
}

func (f *fakeResolver) GetBySlug(ctx context.Context, slug string) (domain.Restaurant, error) {
	r, ok := f.known[slug]
	if !ok {
		return domain.Restaurant{}, ErrUnresolved
	}
	return r, nil
}

func resolverWith(names ...string) *fakeResolver {
	f := &fakeResolver{known: map[string]domain.Restaurant{}}
	for _, n := range names {
		slug := domain.Slugify(n)
		f.known[slug] = domain.Restaurant{ID: uuid.New(), Name: n, Slug: slug}
	}
	return f
}

// testEngine mounts the middleware behind an optional claims injector and
// echoes the resolved slug.
func testEngine(resolver ResolverInterface, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/probe", func(c *gin.Context) {
		if claims != nil {
			c.Set("auth.claims", claims)
		}
		c.Next()
	}, Middleware(resolver), func(c *gin.Context) {
		r, _ := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"slug": r.Slug})
	})
	return engine
}

func TestTenantResolutionPrecedence(t *testing.T) {
	resolver := resolverWith("Spice Garden", "Other Place")
	adminClaims := &auth.Claims{Role: domain.RoleAdmin, RestaurantName: "Spice Garden"}
	superClaims := &auth.Claims{Role: domain.RoleSuperAdmin, RestaurantName: "Spice Garden"}

	tests := []struct {
		name     string
		claims   *auth.Claims
		header   string
		query    string
		body     string
		wantSlug string
		wantCode int
	}{
		{
			name:     "claims beat header for non-superadmin",
			claims:   adminClaims,
			header:   "Other Place",
			wantSlug: "spice_garden",
			wantCode: http.StatusOK,
		},
		{
			name:     "superadmin claims defer to header",
			claims:   superClaims,
			header:   "Other Place",
			wantSlug: "other_place",
			wantCode: http.StatusOK,
		},
		{
			name:     "header beats query",
			header:   "Spice Garden",
			query:    "Other Place",
			wantSlug: "spice_garden",
			wantCode: http.StatusOK,
		},
		{
			name:     "query beats body",
			query:    "Other Place",
			body:     `{"restaurantName":"Spice Garden"}`,
			wantSlug: "other_place",
			wantCode: http.StatusOK,
		},
		{
			name:     "body alone resolves",
			body:     `{"restaurantName":"Spice Garden"}`,
			wantSlug: "spice_garden",
			wantCode: http.StatusOK,
		},
		{
			name:     "nothing resolves to 400",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown restaurant is 400",
			header:   "No Such Place",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := testEngine(resolver, tt.claims)

			target := "/probe"
			if tt.query != "" {
				target += "?restaurantName=" + strings.ReplaceAll(tt.query, " ", "%20")
			}
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(http.MethodPost, target, body)
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set(HeaderName, tt.header)
			}

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var problem struct {
					Type string `json:"type"`
				}
				json.Unmarshal(w.Body.Bytes(), &problem)
				if problem.Type != "tenant_unresolved" {
					t.Errorf("problem type = %q, want tenant_unresolved", problem.Type)
				}
				return
			}
			var got struct {
				Slug string `json:"slug"`
			}
			json.Unmarshal(w.Body.Bytes(), &got)
			if got.Slug != tt.wantSlug {
				t.Errorf("slug = %q, want %q", got.Slug, tt.wantSlug)
			}
		})
	}
}

func TestBodyPeekPreservesBody(t *testing.T) {
	resolver := resolverWith("Spice Garden")
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/probe", Middleware(resolver), func(c *gin.Context) {
		var payload struct {
			RestaurantName string `json:"restaurantName"`
			Note           string `json:"note"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	req := httptest.NewRequest(http.MethodPost, "/probe",
		strings.NewReader(`{"restaurantName":"Spice Garden","note":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", w.Code, w.Body.String())
	}
	var got struct {
		Note string `json:"note"`
	}
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Note != "hello" {
		t.Errorf("note = %q, body was consumed by the tenant peek", got.Note)
	}
}
