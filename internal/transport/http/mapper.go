package http

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/vovakirdan/coinchat-server/internal/core"
	"github.com/vovakirdan/coinchat-server/internal/proto"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

// ErrCodeUnsupportedVersion is sent when a client asks for another protocol version.
const ErrCodeUnsupportedVersion = "unsupported_version"

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func decode(data json.RawMessage, v any) *proto.Error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badRequest("invalid payload")
	}
	return nil
}

// inboundToCommand maps a wire envelope to a core command.
// A non-nil *proto.Error is answered on the connection without reaching the hub.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeAuthenticate:
		var data proto.AuthenticateData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		if data.Protocol != 0 && data.Protocol != proto.ProtocolVersion {
			return nil, &proto.Error{Code: ErrCodeUnsupportedVersion, Msg: "unsupported protocol version"}
		}
		return &core.Command{Kind: core.CommandAuthenticate, Token: data.Token}, nil

	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		if data.RecipientID == 0 && data.Room == "" {
			return nil, badRequest("room or recipient_id is required")
		}
		return &core.Command{
			Kind:        core.CommandSendMessage,
			Room:        data.Room,
			RecipientID: data.RecipientID,
			Body:        data.Body,
		}, nil

	case proto.InboundTypeSendCoins:
		var data proto.SendCoinsData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandSendCoins, RecipientID: data.To, Amount: data.Amount}, nil

	case proto.InboundTypeVoiceJoin, proto.InboundTypeVoiceLeave, proto.InboundTypeVoiceRequestStage:
		var data proto.VoiceRoomData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		kind := core.CommandVoiceJoin
		switch inbound.Type {
		case proto.InboundTypeVoiceLeave:
			kind = core.CommandVoiceLeave
		case proto.InboundTypeVoiceRequestStage:
			kind = core.CommandVoiceRequestStage
		}
		return &core.Command{Kind: kind, Room: data.Room}, nil

	case proto.InboundTypeVoiceComment:
		var data proto.VoiceCommentData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandVoiceComment, Room: data.Room, Body: data.Body}, nil

	case proto.InboundTypeVoiceStageDecide:
		var data proto.StageDecisionData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:        core.CommandVoiceStageDecision,
			Room:        data.Room,
			RecipientID: data.UserID,
			Accept:      data.Accept,
		}, nil

	case proto.InboundTypeLobbyVoiceInvite:
		var data proto.LobbyVoiceInviteData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandLobbyVoiceInvite, Room: data.Room}, nil

	case proto.InboundTypeHistory:
		var data proto.HistoryData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:        core.CommandHistory,
			Room:        data.Room,
			RecipientID: data.RecipientID,
			Page:        store.Page{Limit: data.Limit, BeforeID: data.BeforeID},
		}, nil

	case proto.InboundTypeWebRTCOffer, proto.InboundTypeWebRTCAnswer, proto.InboundTypeWebRTCICE:
		var data proto.SignalData
		if perr := decode(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		sig := &core.Signal{RoomID: data.RoomID}
		switch inbound.Type {
		case proto.InboundTypeWebRTCOffer:
			sig.Kind, sig.Payload = core.SignalOffer, data.Offer
		case proto.InboundTypeWebRTCAnswer:
			sig.Kind, sig.Payload = core.SignalAnswer, data.Answer
		default:
			sig.Kind, sig.Payload = core.SignalICECandidate, data.Candidate
		}
		return &core.Command{Kind: core.CommandSignal, RecipientID: data.To, Signal: sig}, nil

	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

func eventMessage(msg core.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:             msg.ID,
		SenderID:       msg.SenderID,
		SenderUsername: msg.SenderUsername,
		Room:           msg.Room,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		Degraded:       msg.Degraded,
	}
	if msg.RecipientID != 0 {
		rid := msg.RecipientID
		out.RecipientID = &rid
	}
	return out
}

func storeMessage(msg *store.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:             msg.ID,
		SenderID:       msg.SenderID,
		SenderUsername: msg.SenderUsername,
		RecipientID:    msg.RecipientID,
		Room:           msg.Room,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return out
}

func event(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func stage(name string, ev *core.Event) proto.Outbound {
	return event(name, proto.EventVoiceStage{Room: ev.Room, UserID: ev.UserID, Username: ev.Username})
}

func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventAuthenticated:
		info := ev.Auth
		return event(proto.EventAuthenticated, proto.EventAuthenticatedData{
			User:     proto.User{ID: info.Identity.ID, Username: info.Identity.Username, Role: info.Identity.Role},
			Coins:    info.Balance,
			Online:   nonNil(info.Online),
			Unlocked: nonNil(info.Unlocked),
			Degraded: info.Degraded,
		})
	case core.EventNewMessage:
		return event(proto.EventNewMessage, eventMessage(*ev.Message))
	case core.EventBlockedMessage:
		return event(proto.EventBlockedMessage, proto.BlockedMessageData{
			Reason:      ev.Reason,
			RecipientID: ev.UserID,
			Coins:       ev.Coins,
		})
	case core.EventStatus:
		return event(proto.EventStatus, proto.StatusData{UserID: ev.UserID, Status: ev.Status})
	case core.EventCoinsUpdate:
		return event(proto.EventCoinsUpdate, proto.CoinsUpdateData{UserID: ev.UserID, Coins: ev.Coins})
	case core.EventVoiceRoster:
		participants := make([]proto.Participant, 0, len(ev.Roster.Participants))
		for _, p := range ev.Roster.Participants {
			participants = append(participants, proto.Participant{UserID: p.UserID, Username: p.Username, Role: p.Role})
		}
		return event(proto.EventVoiceRoster, proto.VoiceRosterData{Room: ev.Roster.Room, Participants: participants})
	case core.EventSignal:
		sig := ev.Signal
		data := proto.EventSignal{From: sig.From, RoomID: json.RawMessage(sig.RoomID)}
		switch sig.Kind {
		case core.SignalOffer:
			data.Offer = json.RawMessage(sig.Payload)
		case core.SignalAnswer:
			data.Answer = json.RawMessage(sig.Payload)
		case core.SignalICECandidate:
			data.Candidate = json.RawMessage(sig.Payload)
		}
		return event(sig.Kind.String(), data)
	case core.EventUndeliverable:
		name := ""
		if ev.Signal != nil {
			name = ev.Signal.Kind.String()
		}
		return event(proto.EventUndeliverable, proto.UndeliverableData{To: ev.UserID, Event: name})
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(ev.Messages))
		for _, msg := range ev.Messages {
			messages = append(messages, eventMessage(msg))
		}
		return event(proto.EventHistory, proto.HistoryPageData{
			Room:        ev.Room,
			RecipientID: ev.UserID,
			Messages:    messages,
		})
	case core.EventSystemStatus:
		return event(proto.EventSystemStatus, proto.SystemStatusData{Degraded: ev.Degraded})
	case core.EventVoiceComment:
		return event(proto.EventVoiceComment, proto.VoiceCommentEventData{
			Room:     ev.Room,
			UserID:   ev.UserID,
			Username: ev.Username,
			Body:     ev.Body,
		})
	case core.EventVoiceStageRequest:
		return stage(proto.EventVoiceStageRequest, ev)
	case core.EventVoiceStageGranted:
		return stage(proto.EventVoiceStageGranted, ev)
	case core.EventVoiceStageDenied:
		return stage(proto.EventVoiceStageDenied, ev)
	case core.EventVoiceStageFull:
		return stage(proto.EventVoiceStageFull, ev)
	case core.EventVoiceJoinInfo:
		info := ev.JoinInfo
		return event(proto.EventVoiceJoinInfo, proto.VoiceJoinInfoData{
			Room:     ev.Room,
			URL:      info.URL,
			Token:    info.Token,
			RoomName: info.RoomName,
			Identity: info.Identity,
		})
	case core.EventLobbyVoiceInvite:
		return event(proto.EventLobbyVoiceInvite, proto.LobbyVoiceInviteEventData{
			From:     ev.UserID,
			Username: ev.Username,
			Room:     ev.Room,
		})
	case core.EventError:
		if ev.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
