package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeAuthenticate      = "authenticate"
	InboundTypeSendMessage       = "send_message"
	InboundTypeSendCoins         = "send_coins"
	InboundTypeVoiceJoin         = "voice_join"
	InboundTypeVoiceLeave        = "voice_leave"
	InboundTypeWebRTCOffer       = "webrtc-offer"
	InboundTypeWebRTCAnswer      = "webrtc-answer"
	InboundTypeWebRTCICE         = "webrtc-ice-candidate"
	InboundTypeHistory           = "history"
	InboundTypeVoiceComment      = "voice_comment"
	InboundTypeVoiceRequestStage = "voice_request_stage"
	InboundTypeVoiceStageDecide  = "voice_stage_decision"
	InboundTypeLobbyVoiceInvite  = "lobby_voice_invite"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventAuthenticated     = "authenticated"
	EventNewMessage        = "new_message"
	EventBlockedMessage    = "blocked_message"
	EventStatus            = "status"
	EventCoinsUpdate       = "coins_update"
	EventVoiceRoster       = "voice_roster"
	EventUndeliverable     = "undeliverable"
	EventHistory           = "history"
	EventSystemStatus      = "system_status"
	EventVoiceComment      = "voice_comment"
	EventVoiceStageRequest = "voice_stage_request"
	EventVoiceStageGranted = "voice_stage_granted"
	EventVoiceStageDenied  = "voice_stage_denied"
	EventVoiceStageFull    = "voice_stage_full"
	EventVoiceJoinInfo     = "voice_join_info"
	EventLobbyVoiceInvite  = "lobby_voice_invite"
)

// AuthenticateData carries the identity proof.
type AuthenticateData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// SendMessageData targets the lobby (room) or a peer (recipient_id).
type SendMessageData struct {
	Room        string `json:"room,omitempty"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	Body        string `json:"body"`
}

// SendCoinsData transfers coins to another user.
type SendCoinsData struct {
	To     int64 `json:"to"`
	Amount int64 `json:"amount"`
}

// VoiceRoomData names a voice room.
type VoiceRoomData struct {
	Room string `json:"room"`
}

// VoiceCommentData is a text comment inside a voice room.
type VoiceCommentData struct {
	Room string `json:"room"`
	Body string `json:"body"`
}

// StageDecisionData is a host's answer to a stage request.
type StageDecisionData struct {
	Room   string `json:"room"`
	UserID int64  `json:"user_id"`
	Accept bool   `json:"accept"`
}

// LobbyVoiceInviteData optionally names the room being advertised.
type LobbyVoiceInviteData struct {
	Room string `json:"room,omitempty"`
}

// SignalData is an inbound signaling envelope. Exactly one payload field is used,
// matching the event type.
type SignalData struct {
	To        int64           `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	RoomID    json.RawMessage `json:"room_id,omitempty"`
}

// HistoryData selects lobby or thread history.
type HistoryData struct {
	Room        string `json:"room,omitempty"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	BeforeID    int64  `json:"before_id,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// User is the public view of an identity.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// EventAuthenticatedData confirms the connection binding.
type EventAuthenticatedData struct {
	User     User    `json:"user"`
	Coins    int64   `json:"coins"`
	Online   []int64 `json:"online"`
	Unlocked []int64 `json:"unlocked"`
	Degraded bool    `json:"degraded"`
}

// EventMessage is a delivered or historical chat message.
type EventMessage struct {
	ID             int64  `json:"id"`
	SenderID       int64  `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	RecipientID    *int64 `json:"recipient_id"`
	Room           string `json:"room,omitempty"`
	Body           string `json:"body"`
	CreatedAt      string `json:"created_at"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// BlockedMessageData reports a denied private send.
type BlockedMessageData struct {
	Reason      string `json:"reason"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	Coins       int64  `json:"coins"`
}

// StatusData announces a presence transition.
type StatusData struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

// CoinsUpdateData carries a new balance.
type CoinsUpdateData struct {
	UserID int64 `json:"user_id"`
	Coins  int64 `json:"coins"`
}

// Participant is one member of a voice room.
type Participant struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// VoiceRosterData carries a full voice room roster.
type VoiceRosterData struct {
	Room         string        `json:"room"`
	Participants []Participant `json:"participants"`
}

// EventSignal is a relayed signaling envelope. The payload key follows the event type.
type EventSignal struct {
	From      int64           `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	RoomID    json.RawMessage `json:"room_id,omitempty"`
}

// UndeliverableData tells the sender a signal target is offline.
type UndeliverableData struct {
	To    int64  `json:"to"`
	Event string `json:"event"`
}

// HistoryPageData delivers a page of messages, oldest first.
type HistoryPageData struct {
	Room        string         `json:"room,omitempty"`
	RecipientID int64          `json:"recipient_id,omitempty"`
	Messages    []EventMessage `json:"messages"`
}

// SystemStatusData reports degraded mode.
type SystemStatusData struct {
	Degraded bool `json:"degraded"`
}

// VoiceCommentEventData is a voice room text comment.
type VoiceCommentEventData struct {
	Room     string `json:"room"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Body     string `json:"body"`
}

// EventVoiceStage covers stage request, grant, denial and full notices.
type EventVoiceStage struct {
	Room     string `json:"room"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// VoiceJoinInfoData carries media credentials.
type VoiceJoinInfoData struct {
	Room     string `json:"room"`
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"room_name"`
	Identity string `json:"identity"`
}

// LobbyVoiceInviteEventData invites lobby members into a voice session.
type LobbyVoiceInviteEventData struct {
	From     int64  `json:"from"`
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
