package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/internal/auth"
	"social-service/internal/permissions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokens("secret", "social-service", time.Hour)
	router := gin.New()
	router.Use(AuthMiddleware(tokens))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetInt("userID"), "role": c.GetString("role")})
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	raw, err := tokens.Issue(9, "admin")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w = serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":9,"role":"admin"}`, w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	policy, err := permissions.New()
	require.NoError(t, err)

	for role, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden} {
		router := gin.New()
		router.Use(func(c *gin.Context) { c.Set("role", role) })
		router.GET("/admin", RequireAdmin(policy, permissions.ViewDashboard), func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, want, serve(router, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code, role)
	}
}

func TestRequireOTP(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "social-service", AccountName: "admin"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin", RequireOTP(key.Secret()), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(router, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-OTP-Code", "000000x")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-OTP-Code", code)
	assert.Equal(t, http.StatusOK, serve(router, req).Code)

	open := gin.New()
	open.GET("/admin", RequireOTP(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.True(t, limiter.Allow("user:1"))
}
