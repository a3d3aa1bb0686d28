package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coinchat-server/internal/store"
)

// OnlineChecker reports live presence.
type OnlineChecker interface {
	IsOnline(userID int64) bool
}

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	users    store.UserStore
	presence OnlineChecker
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(users store.UserStore, presence OnlineChecker, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		users:    users,
		presence: presence,
		log:      logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// ListUsers returns every other registered user with a presence flag.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		if u.ID == uid {
			continue
		}
		response = append(response, UserResponse{
			ID:       u.ID,
			Username: u.Username,
			Online:   h.presence.IsOnline(u.ID),
		})
	}

	c.JSON(http.StatusOK, response)
}
