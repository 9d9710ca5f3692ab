package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"projecthub/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec() *jwt.Service {
	return jwt.New(jwt.Config{
		Secret:        "test-secret-123",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		RememberMeTTL: 30 * 24 * time.Hour,
	})
}

func newProtectedRouter(codec *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuth(codec))
	router.GET("/protected", func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	return router
}

func TestJWTAuth_ValidAccessToken(t *testing.T) {
	codec := newTestCodec()
	token, _, err := codec.GenerateAccessToken("user-1", "alice", "user", false)
	require.NoError(t, err)

	router := newProtectedRouter(codec)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestJWTAuth_RejectsRefreshToken(t *testing.T) {
	codec := newTestCodec()
	token, _, err := codec.GenerateRefreshToken("user-1", "alice", "user", false)
	require.NoError(t, err)

	router := newProtectedRouter(codec)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RejectsBadHeaders(t *testing.T) {
	codec := newTestCodec()
	router := newProtectedRouter(codec)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc123",
		"empty token":    "Bearer ",
		"garbage token":  "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestJWTAuth_RejectsWrongSecret(t *testing.T) {
	other := jwt.New(jwt.Config{
		Secret:        "other-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		RememberMeTTL: 30 * 24 * time.Hour,
	})
	token, _, err := other.GenerateAccessToken("user-1", "alice", "user", false)
	require.NoError(t, err)

	router := newProtectedRouter(newTestCodec())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly(t *testing.T) {
	codec := newTestCodec()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuth(codec), AdminOnly())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	adminToken, _, err := codec.GenerateAccessToken("admin-1", "root", "admin", false)
	require.NoError(t, err)
	userToken, _, err := codec.GenerateAccessToken("user-1", "alice", "user", false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
