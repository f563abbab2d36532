package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"groceryhelper/internal/session"
)

// SessionAuthMiddleware validates the session cookie and injects the
// authenticated email into the Gin context. Requests without a valid
// session are rejected as Anonymous.
func SessionAuthMiddleware(sessionMgr session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: no session cookie",
			})
			return
		}

		sess, err := sessionMgr.Get(c.Request.Context(), sessionID)
		if err != nil {
			log.Printf("Invalid session %s: %v", sessionID, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: invalid session",
			})
			return
		}

		if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: session expired",
			})
			return
		}

		c.Set("email", sess.Email)

		c.Next()
	}
}
