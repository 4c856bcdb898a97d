package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gamelo-backend/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, mw gin.HandlerFunc, role string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", role))
		}
		c.Next()
	})
	r.GET("/x", mw, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequirePermission(t *testing.T) {
	mw := RequirePermission(PermManageDiscounts)

	if got := doRequest(t, mw, RoleAdmin); got != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", got)
	}
	if got := doRequest(t, mw, RoleModerator); got != http.StatusOK {
		t.Fatalf("moderator: expected 200, got %d", got)
	}
	if got := doRequest(t, mw, RoleSupport); got != http.StatusForbidden {
		t.Fatalf("support: expected 403, got %d", got)
	}
	if got := doRequest(t, mw, RoleBuyer); got != http.StatusForbidden {
		t.Fatalf("buyer: expected 403, got %d", got)
	}
	if got := doRequest(t, mw, ""); got != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", got)
	}
}

func TestRequireAnyRole_AdminBypass(t *testing.T) {
	mw := RequireAnyRole(RoleSupport)

	if got := doRequest(t, mw, RoleAdmin); got != http.StatusOK {
		t.Fatalf("admin bypass: expected 200, got %d", got)
	}
	if got := doRequest(t, mw, RoleReadonly); got != http.StatusForbidden {
		t.Fatalf("readonly: expected 403, got %d", got)
	}
}

func TestHasPermission(t *testing.T) {
	if !HasPermission(RoleSupport, PermManageDisputes) {
		t.Fatalf("support must manage disputes")
	}
	if HasPermission(RoleModerator, PermManageWallets) {
		t.Fatalf("moderator must not manage wallets")
	}
	if HasPermission(RoleBuyer, PermViewAnalytics) {
		t.Fatalf("buyer must not view analytics")
	}
}
