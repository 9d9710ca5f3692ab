package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"projecthub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refreshToken"

type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	cookies CookieConfig
}

// NewHandler creates a new auth handler with injected service
func NewHandler(service *Service, cookies CookieConfig) *Handler {
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	return &Handler{service: service, cookies: cookies}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/logout-all", h.LogoutAll)
		authGroup.GET("/verify", h.Verify)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	authGroup := protected.Group("/auth")
	{
		authGroup.GET("/session", h.Session)
	}
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	authGroup := admin.Group("/auth")
	{
		authGroup.GET("/incidents", h.Incidents)
	}
}

// Login authenticates a user and opens a new session (token family).
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), req.Username, req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Username or password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	h.setRefreshCookie(c, tokens)

	response.Success(c, http.StatusOK, LoginResponse{
		AccessToken: tokens.AccessToken,
		Username:    tokens.Username,
		Message:     "Login successful",
	})
}

// Refresh rotates the refresh token from the cookie and returns a new
// access token. Any security failure invalidates the client-side session.
func (h *Handler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		response.Error(c, http.StatusUnauthorized, "NO_REFRESH_TOKEN", "No refresh token provided")
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenReuseDetected):
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "TOKEN_REUSE_DETECTED", "Token reuse detected - all tokens revoked")
		case errors.Is(err, ErrFamilyCompromised):
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "FAMILY_COMPROMISED", "Session was revoked for security reasons")
		case errors.Is(err, ErrRateLimitExceeded):
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many refresh attempts, slow down")
		case errors.Is(err, ErrRotationLimitExceeded):
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "ROTATION_LIMIT_EXCEEDED", "Session is too old, please log in again")
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrTokenExpired):
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is expired or invalid")
		default:
			// storage/transient failures are not security outcomes
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh token")
		}
		return
	}

	h.setRefreshCookie(c, tokens)

	response.Success(c, http.StatusOK, RefreshResponse{
		AccessToken: tokens.AccessToken,
		Message:     "Token refreshed successfully",
	})
}

// Logout revokes the presented refresh token and clears the cookie.
// Missing or unknown tokens still succeed.
func (h *Handler) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err == nil && refreshToken != "" {
		if err := h.service.Logout(c.Request.Context(), refreshToken); err != nil {
			response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
			return
		}
	}

	h.clearRefreshCookie(c)

	// opportunistic cleanup of terminal rows
	_, _ = h.service.CleanupExpiredTokens(c.Request.Context())

	response.Success(c, http.StatusOK, gin.H{"message": "Logout successful"})
}

// LogoutAll revokes every session of the user owning the refresh token.
func (h *Handler) LogoutAll(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		response.Error(c, http.StatusUnauthorized, "NO_REFRESH_TOKEN", "No refresh token provided")
		return
	}

	claims, err := h.service.codec.Verify(refreshToken)
	if err != nil {
		h.clearRefreshCookie(c)
		response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is expired or invalid")
		return
	}

	if err := h.service.LogoutAllDevices(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout from all devices")
		return
	}

	h.clearRefreshCookie(c)
	_, _ = h.service.CleanupExpiredTokens(c.Request.Context())

	response.Success(c, http.StatusOK, gin.H{"message": "Logged out from all devices"})
}

// Verify validates the access token from the Authorization header.
func (h *Handler) Verify(c *gin.Context) {
	token := extractBearerToken(c)
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "NO_TOKEN", "Authorization header missing")
		return
	}

	user, err := h.service.VerifyAccessToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token is expired or invalid")
		return
	}

	response.Success(c, http.StatusOK, TokenVerificationResponse{
		Valid:    true,
		Username: user.Username,
		Role:     string(user.Role),
		Message:  "Token is valid",
	})
}

// Session returns session telemetry for the authenticated user.
func (h *Handler) Session(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	info, err := h.service.SessionInfo(c.Request.Context(), userIDAny.(string))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "SESSION_INFO_FAILED", "Failed to load session info")
		return
	}

	response.Success(c, http.StatusOK, SessionInfoResponse{
		ActiveTokens:   info.ActiveTokens,
		TotalRotations: info.TotalRotations,
	})
}

// Incidents lists recent token reuse incidents (admin only).
func (h *Handler) Incidents(c *gin.Context) {
	window := 24 * time.Hour
	if hours := c.Query("hours"); hours != "" {
		n, err := strconv.Atoi(hours)
		if err != nil || n <= 0 {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "hours must be a positive integer")
			return
		}
		window = time.Duration(n) * time.Hour
	}

	incidents, err := h.service.RecentIncidents(c.Request.Context(), window)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INCIDENTS_FAILED", "Failed to load security incidents")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"count":     len(incidents),
		"incidents": incidents,
	})
}

func (h *Handler) setRefreshCookie(c *gin.Context, tokens *SessionTokens) {
	maxAge := int(time.Until(tokens.RefreshExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(refreshCookieName, tokens.RefreshToken, maxAge, h.cookies.Path, "", h.cookies.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(refreshCookieName, "", -1, h.cookies.Path, "", h.cookies.Secure, true)
}

func extractBearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
