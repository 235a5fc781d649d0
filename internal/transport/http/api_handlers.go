package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/core"
)

// PresenceHandlers serves read-only presence queries for the profile and
// contact services.
type PresenceHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewPresenceHandlers creates a new presence handlers instance.
func NewPresenceHandlers(hub *core.Hub, logger *zerolog.Logger) *PresenceHandlers {
	return &PresenceHandlers{hub: hub, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserPresenceResponse describes one user's presence.
type UserPresenceResponse struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// OnlineUsersResponse lists online users.
type OnlineUsersResponse struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

// GetUserPresence reports whether a user is online.
// GET /api/presence/:userID
func (h *PresenceHandlers) GetUserPresence(c *gin.Context) {
	userID := c.Param("userID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id is required"})
		return
	}

	conns := h.hub.Registry().ConnectionsFor(userID)
	c.JSON(http.StatusOK, UserPresenceResponse{
		UserID:      userID,
		Online:      len(conns) > 0,
		Connections: len(conns),
	})
}

// ListOnlineUsers returns every online user.
// GET /api/presence
func (h *PresenceHandlers) ListOnlineUsers(c *gin.Context) {
	users := h.hub.Registry().OnlineUsers()
	c.JSON(http.StatusOK, OnlineUsersResponse{Users: users, Count: len(users)})
}
