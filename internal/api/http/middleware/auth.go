package middleware

import (
	"net/http"
	"strings"

	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := auth.ValidateToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// PrincipalFrom returns the caller identity stored by JWTAuth.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
			return
		}
		if !p.Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: "forbidden", Details: "missing capability " + capability.String()})
			return
		}
		c.Next()
	}
}
