package middleware

import (
	"strings"

	"batball/internal/apperr"
	"batball/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
)

// Auth требует валидный Bearer токен
func Auth(jwt *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			Fail(c, apperr.Unauthorized("missing authorization header"))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			Fail(c, apperr.Unauthorized("invalid authorization format"))
			return
		}

		claims, err := jwt.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and
// lets the request through unauthenticated otherwise.
func OptionalAuth(jwt *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && strings.TrimSpace(token) != "" {
			if claims, err := jwt.ValidateToken(strings.TrimSpace(token)); err == nil {
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxUsername, claims.Username)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user id and name, if any.
func CurrentUser(c *gin.Context) (userID, username string, ok bool) {
	userID = c.GetString(ctxUserID)
	if userID == "" {
		return "", "", false
	}
	return userID, c.GetString(ctxUsername), true
}
