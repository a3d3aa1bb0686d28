package livekit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/vovakirdan/coinchat-server/internal/callengine"
)

// LiveKitEngine implements callengine.Engine using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	validFor  time.Duration
}

// New creates a new LiveKitEngine.
func New(apiKey, apiSecret, wsURL string) *LiveKitEngine {
	return &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		validFor:  time.Hour,
	}
}

// RoomName maps a voice room to its LiveKit room.
// LiveKit creates rooms on demand when the first participant connects.
func RoomName(room string) string {
	return "coinchat-voice-" + strings.ToLower(strings.TrimSpace(room))
}

// GenerateJoinInfo creates join credentials for a user to enter the voice room.
func (e *LiveKitEngine) GenerateJoinInfo(_ context.Context, room string, userID int64, username string) (*callengine.JoinInfo, error) {
	if strings.TrimSpace(room) == "" {
		return nil, fmt.Errorf("empty room name")
	}

	identity := fmt.Sprintf("user-%d", userID)
	roomName := RoomName(room)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(username).
		SetValidFor(e.validFor)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &callengine.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: roomName,
		Identity: identity,
	}, nil
}

// Ensure LiveKitEngine implements callengine.Engine
var _ callengine.Engine = (*LiveKitEngine)(nil)
