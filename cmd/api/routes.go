package main

import (
	"context"
	"net/http"
	"time"

	"call-relay/internal/auth"
	"call-relay/internal/httpapi"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	handlers httpapi.Handlers
	authMW   gin.HandlerFunc
	auth     *auth.Manager

	// devAuth enables the token issuance endpoint outside production.
	// Production callers obtain tokens from the real identity provider.
	devAuth bool

	// ready checks the external collaborators (redis, optional postgres).
	ready func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.ready != nil {
			if err := deps.ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.devAuth {
		r.POST("/auth/dev-token", func(c *gin.Context) {
			var req struct {
				UserID string `json:"user_id"`
			}
			if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
				return
			}
			tok, err := deps.auth.IssueAccessToken(time.Now(), req.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"access_token": tok})
		})
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(deps.authMW)
	{
		calls := v1.Group("/calls")
		{
			calls.POST("/initiate", deps.handlers.Initiate)
			calls.POST("/accept", deps.handlers.Accept)
			calls.POST("/end", deps.handlers.End)
			calls.GET("/:call_id", deps.handlers.GetCall)
			calls.GET("/:call_id/history", deps.handlers.GetCallHistory)
		}

		devices := v1.Group("/devices")
		{
			devices.POST("/register", deps.handlers.RegisterDevice)
		}
	}
}
