package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/middleware"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

const msgBadCredentials = "Incorrect username or password. Please try again."

type AuthHandler struct {
	config *config.AuthConfig
}

func NewAuthHandler(cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
}

// Login checks the single configured operator credential pair and opens a session
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.credentialsMatch(req.Username, req.Password) {
		logger.Warn(c.Request.Context(), "login rejected", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgBadCredentials})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(req.Username, h.config)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to sign session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", c.Request.TLS != nil, true)

	logger.Info(c.Request.Context(), "operator logged in", "username", req.Username)
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Username:  req.Username,
	})
}

// An empty configured password never matches, even against an empty input.
func (h *AuthHandler) credentialsMatch(username, password string) bool {
	if h.config.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.config.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.config.Password)) == 1
	return userOK && passOK
}

// Me returns the operator of the current session
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": middleware.GetUsername(c)})
}

// Logout expires the session cookie. Bearer clients just drop their token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
