package core

import (
	"github.com/vovakirdan/coinchat-server/internal/callengine"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventAuthenticated confirms the connection binding.
	EventAuthenticated EventKind = iota
	// EventNewMessage delivers a lobby or private message.
	EventNewMessage
	// EventBlockedMessage tells the sender a private message was not delivered.
	EventBlockedMessage
	// EventStatus announces an online/offline transition.
	EventStatus
	// EventCoinsUpdate carries a new balance.
	EventCoinsUpdate
	// EventVoiceRoster carries the full participant list of a voice room.
	EventVoiceRoster
	// EventSignal relays a call-setup payload.
	EventSignal
	// EventUndeliverable reports that a signal target has no live connection.
	EventUndeliverable
	// EventHistory delivers a page of messages.
	EventHistory
	// EventSystemStatus announces entering or leaving degraded mode.
	EventSystemStatus
	// EventVoiceComment delivers a voice room text comment.
	EventVoiceComment
	// EventVoiceStageRequest asks hosts to decide on a listener.
	EventVoiceStageRequest
	// EventVoiceStageGranted tells the room a listener became a speaker.
	EventVoiceStageGranted
	// EventVoiceStageDenied tells a requester the host said no.
	EventVoiceStageDenied
	// EventVoiceStageFull tells a requester there is no free speaker slot.
	EventVoiceStageFull
	// EventVoiceJoinInfo delivers media credentials for a voice room.
	EventVoiceJoinInfo
	// EventLobbyVoiceInvite invites lobby members into a voice session.
	EventLobbyVoiceInvite
	// EventError notifies clients about a domain error.
	EventError
)

// Status values carried by EventStatus.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room string
	// UserID is the identity the event is about: status subject, balance owner,
	// blocked recipient, signal target, stage requester, invite sender.
	UserID   int64
	Username string
	Status   string
	Coins    int64
	Reason   string
	Body     string
	Degraded bool

	Message  *Message
	Messages []Message // For EventHistory
	Roster   *Roster
	Signal   *SignalEvent
	Auth     *AuthInfo
	JoinInfo *callengine.JoinInfo
	Error    *CoreError
}

// SignalEvent is a relayed signaling envelope.
type SignalEvent struct {
	Kind    SignalKind
	From    int64
	Payload []byte
	RoomID  []byte
}

// AuthInfo is the state snapshot handed to a freshly bound connection.
type AuthInfo struct {
	Identity Identity
	Balance  int64
	Online   []int64
	Unlocked []int64
	Degraded bool
}

func errorEvent(err *CoreError) *Event {
	return &Event{Kind: EventError, Error: err}
}
