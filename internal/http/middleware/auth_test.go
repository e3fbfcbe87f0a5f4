package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/ctxutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type stubAuth struct {
	role string
}

func (s *stubAuth) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString != "good" {
		return ctx, domainagg.Permission("auth.token", "invalid token")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: uuid.New(), Role: s.role}), nil
}

func (s *stubAuth) IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	return "good", nil
}

func newAuthRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), &stubAuth{role: role})
	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", am.RequireAuth(), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r *gin.Engine, path, auth string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter("gm")
	cases := []struct {
		name string
		path string
		auth string
		want int
	}{
		{"missing", "/me", "", http.StatusUnauthorized},
		{"invalid", "/me", "Bearer bad", http.StatusUnauthorized},
		{"valid", "/me", "Bearer good", http.StatusOK},
		{"query token", "/me?token=good", "", http.StatusOK},
		{"non admin", "/admin", "Bearer good", http.StatusForbidden},
	}
	for _, tc := range cases {
		if got := doGet(r, tc.path, tc.auth); got != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, got)
		}
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	r := newAuthRouter("admin")
	if got := doGet(r, "/admin", "Bearer good"); got != http.StatusOK {
		t.Fatalf("admin: want=200 got=%d", got)
	}
}
