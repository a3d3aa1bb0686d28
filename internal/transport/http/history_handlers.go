package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coinchat-server/internal/proto"
	"github.com/vovakirdan/coinchat-server/internal/service/history"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

// HistoryHandlers serves message history over REST.
type HistoryHandlers struct {
	history HistoryReader
	log     *zerolog.Logger
}

// NewHistoryHandlers creates a new history handlers instance.
func NewHistoryHandlers(h HistoryReader, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{history: h, log: logger}
}

// HistoryResponse is a page of messages, oldest first.
type HistoryResponse struct {
	Room        string               `json:"room,omitempty"`
	RecipientID int64                `json:"recipient_id,omitempty"`
	Messages    []proto.EventMessage `json:"messages"`
}

// ListMessages returns lobby history or the caller's thread with recipient_id.
// GET /api/messages?room=lobby|recipient_id=N&limit=&before_id=
func (h *HistoryHandlers) ListMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	page, err := parsePage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var (
		msgs []*store.Message
		resp HistoryResponse
	)
	ctx := c.Request.Context()

	if raw := c.Query("recipient_id"); raw != "" {
		peer, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || peer <= 0 || peer == uid {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid recipient_id"})
			return
		}
		resp.RecipientID = peer
		msgs, err = h.history.Thread(ctx, uid, peer, page)
	} else {
		room := c.DefaultQuery("room", store.LobbyRoom)
		if room != store.LobbyRoom {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown room"})
			return
		}
		resp.Room = room
		msgs, err = h.history.Lobby(ctx, page)
	}
	if err != nil {
		if errors.Is(err, history.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load history")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history unavailable"})
		return
	}

	resp.Messages = make([]proto.EventMessage, 0, len(msgs))
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, storeMessage(msg))
	}
	c.JSON(http.StatusOK, resp)
}

func parsePage(c *gin.Context) (store.Page, error) {
	var page store.Page
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.New("invalid limit")
		}
		page.Limit = n
	}
	if raw := c.Query("before_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return page, errors.New("invalid before_id")
		}
		page.BeforeID = n
	}
	return page, nil
}
