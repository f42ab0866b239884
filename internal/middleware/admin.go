package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"social-service/internal/permissions"
)

// SitePolicy gates admin surfaces.
type SitePolicy interface {
	SiteCan(profileRole string, act permissions.Action) bool
}

// RequireAdmin lets the request through only when the caller's role is
// allowed act.
func RequireAdmin(policy SitePolicy, act permissions.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !policy.SiteCan(c.GetString("role"), act) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// RequireOTP checks the X-OTP-Code header against the admin TOTP secret.
// An empty secret disables the check.
func RequireOTP(secret string) gin.HandlerFunc {
	if secret == "" {
		zap.L().Warn("admin_otp_disabled", zap.String("reason", "empty secret"))
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		code := c.GetHeader("X-OTP-Code")
		if code == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "2FA required"})
			return
		}
		if !totp.Validate(code, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid 2FA code"})
			return
		}
		c.Next()
	}
}
