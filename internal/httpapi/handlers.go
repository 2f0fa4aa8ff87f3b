package httpapi

import (
	"errors"
	"net/http"
	"time"

	"call-relay/internal/auth"
	"call-relay/internal/history"
	"call-relay/internal/registry"
	"call-relay/internal/relay"
	"call-relay/internal/session"
	"call-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Relay    *relay.Service
	Devices  registry.Registry
	Sessions session.Store

	// History is optional; nil means the trail endpoint reports 404.
	History *history.Service

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// writeRelayError maps the relay error taxonomy onto HTTP statuses.
// Response bodies stay generic: no store keys, no tokens, no internal paths.
func writeRelayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, relay.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, relay.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, relay.ErrDependencyFailure):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream dependency failed"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Call operations ---

// Initiate rings the callee and returns the channel credentials.
func (h Handlers) Initiate(c *gin.Context) {
	if h.Relay == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "relay not configured"})
		return
	}
	var req relay.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CallerID == "" {
		// Default the caller identity from the authenticated principal.
		req.CallerID, _ = auth.UserID(c.Request.Context())
	}

	info, err := h.Relay.Initiate(c.Request.Context(), req)
	if err != nil {
		writeRelayError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Accept returns the channel credentials to the accepting party.
func (h Handlers) Accept(c *gin.Context) {
	if h.Relay == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "relay not configured"})
		return
	}
	var req relay.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CalleeID == "" {
		req.CalleeID, _ = auth.UserID(c.Request.Context())
	}

	info, err := h.Relay.Accept(c.Request.Context(), req)
	if err != nil {
		writeRelayError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// End marks the session ended.
func (h Handlers) End(c *gin.Context) {
	if h.Relay == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "relay not configured"})
		return
	}
	var req relay.EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	switch req.Role {
	case "", relay.RoleCaller, relay.RoleCallee:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be caller or callee"})
		return
	}
	if req.UserID == "" {
		req.UserID, _ = auth.UserID(c.Request.Context())
	}

	if err := h.Relay.End(c.Request.Context(), req); err != nil {
		writeRelayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Device registration upkeep ---

type registerDeviceRequest struct {
	DeviceID  string `json:"device_id"`
	PushToken string `json:"push_token"`
	Platform  string `json:"platform,omitempty"`
}

// RegisterDevice upserts the caller's push address. The user identity comes
// from the access token, never from the body.
func (h Handlers) RegisterDevice(c *gin.Context) {
	if h.Devices == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "registry not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil || userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
		return
	}

	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.DeviceID == "" || req.PushToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "device_id and push_token required"})
		return
	}

	reg := registry.Registration{
		UserID:    userID,
		DeviceID:  req.DeviceID,
		PushToken: req.PushToken,
		Platform:  req.Platform,
		UpdatedAt: h.now().UTC(),
	}
	if err := h.Devices.Put(c.Request.Context(), reg); err != nil {
		logger.FromGin(c).Error("device registration failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream dependency failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Read-back ---

type callStatusResponse struct {
	CallID    string `json:"call_id"`
	Status    string `json:"status"`
	CallerID  string `json:"caller_id,omitempty"`
	CalleeID  string `json:"callee_id,omitempty"`
	EndedBy   string `json:"ended_by,omitempty"`
	EndedRole string `json:"ended_role,omitempty"`
}

// GetCall returns the session's current state. The media token is never
// included here; participants obtain it through Initiate/Accept.
func (h Handlers) GetCall(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	sess, err := h.Sessions.Get(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		logger.FromGin(c).Error("session read failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream dependency failed"})
		return
	}

	c.JSON(http.StatusOK, callStatusResponse{
		CallID:    callID,
		Status:    string(sess.EffectiveStatus()),
		CallerID:  sess.CallerID,
		CalleeID:  sess.CalleeID,
		EndedBy:   sess.EndedBy,
		EndedRole: sess.EndedRole,
	})
}

// GetCallHistory returns the status audit trail for one call.
func (h Handlers) GetCallHistory(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	trail, err := h.History.List(c.Request.Context(), callID)
	if err != nil {
		logger.FromGin(c).Error("history read failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream dependency failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": callID, "transitions": trail})
}
