package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/auth"
	"github.com/courierchat/courier-server/internal/core"
	"github.com/courierchat/courier-server/internal/proto"
	"github.com/courierchat/courier-server/internal/store"
	"github.com/courierchat/courier-server/internal/store/sqlite"
)

// UserHandlers provides HTTP handlers for profile and roster operations.
type UserHandlers struct {
	store       store.Store
	registry    *core.Registry
	authService *auth.Service
	log         *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, registry *core.Registry, authService *auth.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:       st,
		registry:    registry,
		authService: authService,
		log:         logger,
	}
}

// ProfileResponse represents the authenticated user's profile.
type ProfileResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UpdatePasswordRequest represents the password change body.
type UpdatePasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// GetProfile returns the logged-in user's profile data.
// GET /api/profile
func (h *UserHandlers) GetProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// UpdatePassword changes the logged-in user's password.
// PUT /api/profile
func (h *UserHandlers) UpdatePassword(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "new password must be at least 6 characters"})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), uid, req.NewPassword); err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to change password")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated successfully"})
}

// ListUsers answers "who exists, who is online".
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	all, err := h.store.ListUsernames(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list usernames")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, proto.UsersListData{
		Online: h.registry.Snapshot(),
		All:    all,
	})
}

// Conversation returns the authenticated user's message history with a peer.
// GET /api/messages/:peer
func (h *UserHandlers) Conversation(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	peer, err := h.store.GetUserByUsername(c.Request.Context(), c.Param("peer"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "peer not found"})
		return
	}

	messages, err := h.store.ListConversation(c.Request.Context(), uid, peer.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Str("peer", peer.Username).Msg("failed to list conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.StoredMessage, 0, len(messages))
	for _, msg := range messages {
		response = append(response, storedMessage(msg))
	}
	c.JSON(http.StatusOK, response)
}
