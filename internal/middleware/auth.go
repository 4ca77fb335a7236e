package middleware

import (
	"net/http"
	"strings"

	"marketstock/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"

	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// JWTClaims are the custom claims embedded in every access token. Tokens are
// issued by the identity provider in front of this service; CompanyID scopes
// every tenant route.
type JWTClaims struct {
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequireCompany rejects tokens that carry no valid company_id.
func RequireCompany() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CompanyID(c); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("token is not scoped to a company"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// CompanyID returns the tenant the request is scoped to.
func CompanyID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return uuid.Nil, false
	}
	claims, ok := v.(*JWTClaims)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.CompanyID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
