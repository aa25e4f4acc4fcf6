package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// protect resolves the bearer token to an active user and stores it on the context
func (h *Handler) protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(raw)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			util.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
			h.respondError(c, apperror.Unauthorized("Not authorized to access this route"))
			return
		}

		user, err := h.auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// authorize allows only users holding one of roles. It must run after protect.
func (h *Handler) authorize(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		for _, role := range roles {
			if user != nil && user.Role == role {
				c.Next()
				return
			}
		}

		role := "anonymous"
		if user != nil {
			role = string(user.Role)
		}
		util.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
		h.respondError(c, apperror.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", role)))
	}
}

func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}
