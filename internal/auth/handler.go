package auth

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"groceryhelper/internal/config"
	"groceryhelper/internal/session"
)

// SessionCookieName is the cookie carrying the opaque session ID
const SessionCookieName = "session_id"

// Handler handles authentication-related HTTP requests
type Handler struct {
	service    Service
	sessionMgr session.Manager
}

// NewHandler creates a new authentication handler
func NewHandler(service Service, sessionMgr session.Manager) *Handler {
	return &Handler{
		service:    service,
		sessionMgr: sessionMgr,
	}
}

// Signup handles POST /signup
// @Summary Create account
// @Description Registers a new account and attempts a best-effort newsletter subscription
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Account details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "passwords_mismatch",
			"message": "Passwords don't match",
		})
		return
	}

	account, err := h.service.Signup(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		log.Printf("Failed to sign up %s: %v", req.Email, err)

		switch {
		case errors.Is(err, ErrEmailExists):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "This email is already registered",
				"field":   "email",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		}
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Account: account})
}

// Login handles POST /login
// @Summary Authenticate
// @Description Verifies credentials and creates a session
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("Failed to log in %s: %v", req.Email, err)

		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		}
		return
	}

	// Zero max age means the session has no expiry policy.
	maxAge := config.GetEnvInt("SESSION_MAX_AGE", 0)

	sessionID, err := h.sessionMgr.Create(c.Request.Context(), account.Email, maxAge)
	if err != nil {
		log.Printf("Failed to create session for %s: %v", account.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	setSessionCookie(c, sessionID, maxAge)

	c.JSON(http.StatusOK, AuthResponse{Account: account})
}

// Logout handles POST /logout
// @Summary Log out
// @Description Destroys the current session; idempotent
// @Produce json
// @Success 200 {object} map[string]string
// @Router /logout [post]
func (h *Handler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "already logged out"})
		return
	}

	if err := h.sessionMgr.Delete(c.Request.Context(), sessionID); err != nil {
		log.Printf("Failed to delete session %s: %v", sessionID, err)
	}

	clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Me handles GET /me
// @Summary Current account
// @Description Returns the account behind the authenticated session
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /me [get]
func (h *Handler) Me(c *gin.Context) {
	email, exists := c.Get("email")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	account, err := h.service.GetByEmail(c.Request.Context(), email.(string))
	if err != nil {
		log.Printf("Failed to load account %s: %v", email, err)
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		}
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Account: account})
}

// DeleteAccount handles DELETE /account
// @Summary Delete account
// @Description Deletes the authenticated account and destroys its session
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /account [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	email, exists := c.Get("email")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), email.(string)); err != nil {
		log.Printf("Failed to delete account %s: %v", email, err)

		switch {
		case errors.Is(err, ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete account"})
		}
		return
	}

	if sessionID, err := c.Cookie(SessionCookieName); err == nil {
		if err := h.sessionMgr.Delete(c.Request.Context(), sessionID); err != nil {
			log.Printf("Failed to delete session %s: %v", sessionID, err)
		}
	}

	clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{"message": "account deleted successfully"})
}

func setSessionCookie(c *gin.Context, sessionID string, maxAge int) {
	secure := os.Getenv("APP_ENV") == "production"
	c.SetCookie(
		SessionCookieName,
		sessionID,
		maxAge,
		"/",
		"",
		secure,
		true, // httpOnly
	)
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
}
