package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skill-exchange/internal/authz"
	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

type stubTokenParser struct {
	claims *service.JWTClaims
	err    error
}

func (p stubTokenParser) ParseJWT(string) (*service.JWTClaims, error) {
	return p.claims, p.err
}

type stubUserLookup map[uint]*models.User

func (l stubUserLookup) GetByID(id uint) (*models.User, error) {
	return l[id], nil
}

func decodeStatusCode(t *testing.T, body []byte) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestUserJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := stubUserLookup{
		1: {ID: 1, Username: "alice", Role: constants.UserRoleUser, Status: constants.UserStatusActive},
		2: {ID: 2, Username: "bob", Role: constants.UserRoleUser, Status: constants.UserStatusDisabled},
	}
	build := func(parser TokenParser) *gin.Engine {
		r := gin.New()
		r.Use(UserJWTAuthMiddleware(parser, users, nil))
		r.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status_code": 0,
				"user_id":     c.GetUint(shared.ContextKeyUserID),
				"username":    c.GetString(shared.ContextKeyUsername),
			})
		})
		return r
	}

	cases := []struct {
		name   string
		header string
		parser TokenParser
		want   int
	}{
		{name: "missing header", header: "", parser: stubTokenParser{}, want: 401},
		{name: "not bearer", header: "Token abc", parser: stubTokenParser{}, want: 401},
		{name: "invalid token", header: "Bearer abc", parser: stubTokenParser{err: service.ErrInvalidToken}, want: 401},
		{name: "unknown user", header: "Bearer abc", parser: stubTokenParser{claims: &service.JWTClaims{UserID: 9}}, want: 401},
		{name: "disabled user", header: "Bearer abc", parser: stubTokenParser{claims: &service.JWTClaims{UserID: 2}}, want: 401},
		{name: "active user", header: "Bearer abc", parser: stubTokenParser{claims: &service.JWTClaims{UserID: 1}}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			build(tc.parser).ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("http status want 200 got %d", w.Code)
			}
			if got := decodeStatusCode(t, w.Body.Bytes()); got != tc.want {
				t.Fatalf("status_code want %d got %d body=%s", tc.want, got, w.Body.String())
			}
		})
	}
}

func TestAdminRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_rbac_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	if err := authzService.SetUserRoles(5, []string{authz.RoleReadonlyAuditor}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw == "5" {
			c.Set(shared.ContextKeyUserID, uint(5))
		}
		c.Next()
	})
	admin := r.Group("/api/v1/admin", AdminRBACMiddleware(authzService))
	admin.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	admin.DELETE("/orders/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	cases := []struct {
		method string
		path   string
		user   string
		want   int
	}{
		{method: http.MethodGet, path: "/api/v1/admin/orders", user: "", want: 401},
		{method: http.MethodGet, path: "/api/v1/admin/orders", user: "5", want: 0},
		{method: http.MethodDelete, path: "/api/v1/admin/orders/3", user: "5", want: 403},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.user != "" {
			req.Header.Set("X-Test-User", tc.user)
		}
		r.ServeHTTP(w, req)
		if got := decodeStatusCode(t, w.Body.Bytes()); got != tc.want {
			t.Fatalf("%s %s status_code want %d got %d", tc.method, tc.path, tc.want, got)
		}
	}
}
