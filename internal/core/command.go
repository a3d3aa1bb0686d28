package core

import (
	"encoding/json"

	"github.com/vovakirdan/coinchat-server/internal/store"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuthenticate binds the connection to an identity.
	CommandAuthenticate CommandKind = iota
	// CommandSendMessage delivers a lobby or private message.
	CommandSendMessage
	// CommandSendCoins transfers coins to another identity.
	CommandSendCoins
	// CommandVoiceJoin enters a voice room.
	CommandVoiceJoin
	// CommandVoiceLeave exits a voice room.
	CommandVoiceLeave
	// CommandSignal relays a call-setup payload to one peer.
	CommandSignal
	// CommandHistory requests a page of lobby or thread history.
	CommandHistory
	// CommandVoiceComment posts a text comment to a voice room.
	CommandVoiceComment
	// CommandVoiceRequestStage asks the room hosts for speaker rights.
	CommandVoiceRequestStage
	// CommandVoiceStageDecision grants or denies a stage request.
	CommandVoiceStageDecision
	// CommandLobbyVoiceInvite invites the lobby into a voice session.
	CommandLobbyVoiceInvite
)

var commandNames = [...]string{
	CommandAuthenticate:       "authenticate",
	CommandSendMessage:        "send_message",
	CommandSendCoins:          "send_coins",
	CommandVoiceJoin:          "voice_join",
	CommandVoiceLeave:         "voice_leave",
	CommandSignal:             "signal",
	CommandHistory:            "history",
	CommandVoiceComment:       "voice_comment",
	CommandVoiceRequestStage:  "voice_request_stage",
	CommandVoiceStageDecision: "voice_stage_decision",
	CommandLobbyVoiceInvite:   "lobby_voice_invite",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[k]
}

// SignalKind is the call-setup step carried by a signaling envelope.
type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalICECandidate
)

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return "webrtc-offer"
	case SignalAnswer:
		return "webrtc-answer"
	case SignalICECandidate:
		return "webrtc-ice-candidate"
	default:
		return "unknown"
	}
}

// Signal is an opaque call-setup payload. The core never looks inside Payload or RoomID.
type Signal struct {
	Kind    SignalKind
	Payload json.RawMessage
	RoomID  json.RawMessage
}

// Command represents an action requested by a client.
// Fields are used depending on Kind.
type Command struct {
	Kind CommandKind

	Token string // authenticate

	// Room selects the lobby for messages and history, or names a voice room.
	Room string
	// RecipientID is the peer for private messages, coins, signals, history and stage decisions.
	RecipientID int64

	Body   string
	Amount int64
	Accept bool
	Page   store.Page
	Signal *Signal
}
