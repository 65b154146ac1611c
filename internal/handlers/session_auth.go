package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/services"
)

// SessionAuthMiddleware authenticates requests with the service's own signed
// session tokens and gates role-protected groups through the role gate.
type SessionAuthMiddleware struct {
	sessions services.SessionManager
	roleGate services.RoleGateService
}

func NewSessionAuthMiddleware(sessions services.SessionManager, roleGate services.RoleGateService) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{
		sessions: sessions,
		roleGate: roleGate,
	}
}

// AuthMiddleware extracts and validates the bearer token, storing the
// account id under "user_id" for the handlers.
func (sam *SessionAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "No autorizado"})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "No autorizado"})
			c.Abort()
			return
		}

		accountID, err := sam.sessions.Parse(tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "No autorizado"})
			c.Abort()
			return
		}

		c.Set("user_id", accountID)
		c.Next()
	}
}

// RequireRoleMiddleware consults the role gate on every request; the gate
// re-reads the profile so role changes apply immediately. Admin does not
// stand in for other roles.
func (sam *SessionAuthMiddleware) RequireRoleMiddleware(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sam.roleGate.Authorize(c.Request.Context(), currentUserID(c), required); err != nil {
			switch err {
			case services.ErrUnauthenticated:
				c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "No autorizado"})
			case services.ErrForbidden:
				c.JSON(http.StatusForbidden, ErrorResponse{Message: "No autorizado"})
			default:
				c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Ha ocurrido un error interno inesperado. Por favor, contacta a soporte."})
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
