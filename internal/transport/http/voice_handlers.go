package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/coinchat-server/internal/core"
)

// VoiceDirectory lists active voice rooms.
type VoiceDirectory interface {
	VoiceRooms() []core.RoomSummary
}

// VoiceHandlers serves voice room listings.
type VoiceHandlers struct {
	rooms VoiceDirectory
}

// NewVoiceHandlers creates a new voice handlers instance.
func NewVoiceHandlers(rooms VoiceDirectory) *VoiceHandlers {
	return &VoiceHandlers{rooms: rooms}
}

// VoiceRoomResponse summarizes one voice room.
type VoiceRoomResponse struct {
	Room         string `json:"room"`
	Participants int    `json:"participants"`
	Speakers     int    `json:"speakers"`
}

// ListRooms returns active voice rooms.
// GET /api/voice/rooms
func (h *VoiceHandlers) ListRooms(c *gin.Context) {
	rooms := h.rooms.VoiceRooms()
	response := make([]VoiceRoomResponse, 0, len(rooms))
	for _, r := range rooms {
		response = append(response, VoiceRoomResponse{
			Room:         r.Name,
			Participants: r.Participants,
			Speakers:     r.Speakers,
		})
	}
	c.JSON(http.StatusOK, response)
}
