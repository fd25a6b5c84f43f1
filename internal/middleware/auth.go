package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/services"
)

const (
	operatorIDKey   = "operatorID"
	operatorRoleKey = "operatorRole"
)

// TokenParser validates operator access tokens.
type TokenParser interface {
	ParseToken(token string) (*services.OperatorClaims, error)
}

type AuthMiddleware struct {
	tokens TokenParser
}

func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// WithAuthCheck requires a valid bearer token and, when roles are given,
// one of those roles.
func (am *AuthMiddleware) WithAuthCheck(roles ...models.OperatorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := am.tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}

		c.Set(operatorIDKey, claims.OperatorID)
		c.Set(operatorRoleKey, claims.Role)
		c.Next()
	}
}

func hasRole(role models.OperatorRole, allowed []models.OperatorRole) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// OperatorID returns the authenticated operator's id.
func OperatorID(c *gin.Context) uint {
	if v, ok := c.Get(operatorIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
