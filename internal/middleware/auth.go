package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/auth"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
)

// Context keys set by Auth.
const (
	KeyUserID    = "userID"
	KeyUserEmail = "userEmail"
	KeyUserRole  = "userRole"
)

// Auth requires a valid token from the Authorization header or the token
// cookie. Browsers asking for HTML are sent to the login page instead of
// getting a 401.
func Auth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := tokenFrom(c)
		if err != nil {
			reject(c, err.Error())
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			logger.Debug("token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			reject(c, "invalid token")
			return
		}

		// Attach user info to request context
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserEmail, claims.Email)
		c.Set(KeyUserRole, claims.Role)
		c.Next()
	}
}

var (
	errMissingToken = errors.New("missing authorization header")
	errTokenFormat  = errors.New("invalid authorization format, use 'Bearer <token>'")
)

// tokenFrom prefers the Authorization header over the cookie.
func tokenFrom(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errTokenFormat
		}
		return parts[1], nil
	}

	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
		return cookie, nil
	}

	return "", errMissingToken
}

func reject(c *gin.Context, msg string) {
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
