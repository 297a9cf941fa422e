package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxClaimsKey is the gin context key under which verified claims are stored.
const ctxClaimsKey = "decms_claims"

// Permission names accepted by RequirePermission. They mirror the boolean
// columns of the roles table.
const (
	PermManageUsers      = "can_manage_users"
	PermCreateCases      = "can_create_cases"
	PermTransferEvidence = "can_transfer_evidence"
)

// RequireToken returns a middleware that rejects requests without a valid
// Bearer session token and injects the verified claims into the context.
func RequireToken(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := issuer.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxClaimsKey, claims)
		c.Next()
	}
}

// RequirePermission returns a middleware that gates a route on one of the
// role permission flags. It must run after RequireToken.
//
// This role gate is deliberately separate from the custody engine's
// current-custodian check: holding can_transfer_evidence lets a user reach
// the transfer endpoint, but only the item's current custodian can move it.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromCtx(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		var ok bool
		switch perm {
		case PermManageUsers:
			ok = claims.CanManageUsers
		case PermCreateCases:
			ok = claims.CanCreateCases
		case PermTransferEvidence:
			ok = claims.CanTransferEvidence
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission for this action"})
			return
		}
		c.Next()
	}
}

// ClaimsFromCtx returns the verified claims injected by RequireToken, or nil.
func ClaimsFromCtx(c *gin.Context) *Claims {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
