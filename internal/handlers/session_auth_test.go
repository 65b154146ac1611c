package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/services"
)

type stubRoleGate struct {
	roles map[string]models.Role
}

func (s *stubRoleGate) Authorize(ctx context.Context, accountID string, required models.Role) error {
	if accountID == "" {
		return services.ErrUnauthenticated
	}
	role, ok := s.roles[accountID]
	if !ok || role != required {
		return services.ErrForbidden
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, services.SessionManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := services.NewSessionManager("test-secret", time.Hour)
	gate := &stubRoleGate{roles: map[string]models.Role{
		"collector": models.RoleLanchero,
		"member":    models.RoleUsuario,
	}}
	middleware := NewSessionAuthMiddleware(sessions, gate)

	router := gin.New()
	protected := router.Group("/reports")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("", middleware.RequireRoleMiddleware(models.RoleLanchero), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "user_id": currentUserID(c)})
	})
	return router, sessions
}

func TestSessionAuthMiddleware(t *testing.T) {
	router, sessions := newTestRouter(t)

	request := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("missing token", func(t *testing.T) {
		if w := request(""); w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if w := request("nonsense"); w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		token, err := sessions.Issue("member")
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		if w := request(token); w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("matching role", func(t *testing.T) {
		token, err := sessions.Issue("collector")
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		if w := request(token); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		token, err := sessions.Issue("ghost")
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		if w := request(token); w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})
}
