package callengine

import "context"

// JoinInfo contains information needed to join a voice room's media session.
type JoinInfo struct {
	URL      string `json:"url"`       // WebSocket URL (e.g., ws://localhost:7880)
	Token    string `json:"token"`     // JWT token for the media server
	RoomName string `json:"room_name"` // Media room name
	Identity string `json:"identity"`  // User identity in the room
}

// Engine abstracts the media backend for voice rooms.
type Engine interface {
	// GenerateJoinInfo creates join credentials for a user entering a voice room.
	GenerateJoinInfo(ctx context.Context, room string, userID int64, username string) (*JoinInfo, error)
}
