package http

import (
	"encoding/json"

	"github.com/bittu292021/chatbox/internal/core"
	"github.com/bittu292021/chatbox/internal/proto"
)

const errCodeUnsupportedVersion = "unsupported_version"

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeBind:
		var bind proto.BindData
		if err := json.Unmarshal(inbound.Data, &bind); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid bind payload"}
		}
		if bind.Protocol != 0 && bind.Protocol != proto.ProtocolVersion {
			return nil, &proto.Error{Code: errCodeUnsupportedVersion, Msg: "unsupported protocol version"}
		}
		return &core.Command{
			Kind:  core.CommandBind,
			User:  bind.User,
			Token: bind.Token,
		}, nil
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid send payload"}
		}
		return &core.Command{
			Kind:        core.CommandSendMessage,
			RecipientID: send.RecipientID,
			Body:        send.Body,
		}, nil
	case proto.InboundTypeTypingStart, proto.InboundTypeTypingStop:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid typing payload"}
		}
		if typing.RecipientID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "recipientId is required"}
		}
		kind := core.CommandTypingStart
		if inbound.Type == proto.InboundTypeTypingStop {
			kind = core.CommandTypingStop
		}
		return &core.Command{Kind: kind, RecipientID: typing.RecipientID}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeUnsupportedType, Msg: "unknown message type"}
	}
}

func messageData(m core.ChatMessage) proto.EventMessageData {
	return proto.EventMessageData{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt.UnixMilli(),
		Delivered:   m.Delivered,
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventBound:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventBound,
			Data: proto.EventBoundData{
				UserID:       event.User,
				ConnectionID: event.ConnID,
				Protocol:     proto.ProtocolVersion,
			},
		}
	case core.EventPresence:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresence,
			Data:  proto.EventPresenceData{UserID: event.User, State: string(event.Presence)},
		}
	case core.EventPresenceSnapshot:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresenceSnapshot,
			Data:  proto.EventPresenceSnapshotData{Users: users},
		}
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  messageData(event.Message),
		}
	case core.EventMessageSent:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageSent,
			Data:  messageData(event.Message),
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTyping,
			Data:  proto.EventTypingData{SenderID: event.User},
		}
	case core.EventTypingStopped:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTypingStopped,
			Data:  proto.EventTypingData{SenderID: event.User},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
