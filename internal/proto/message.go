package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeBind        = "bind"
	InboundTypeSend        = "send"
	InboundTypeTypingStart = "typing_start"
	InboundTypeTypingStop  = "typing_stop"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventBound            = "bound"
	EventPresence         = "presence"
	EventPresenceSnapshot = "presence_snapshot"
	EventMessage          = "message"
	EventMessageSent      = "message_sent"
	EventTyping           = "typing"
	EventTypingStopped    = "typing_stopped"
)

// BindData associates the connection with a user identity.
type BindData struct {
	User     string `json:"user,omitempty"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// SendData is a direct chat message from the client.
type SendData struct {
	RecipientID string `json:"recipientId"`
	Body        string `json:"body"`
}

// TypingData names the user the client is typing to.
type TypingData struct {
	RecipientID string `json:"recipientId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventBoundData confirms the bind.
type EventBoundData struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	Protocol     int    `json:"protocol"`
}

// EventPresenceData is an online/offline transition.
type EventPresenceData struct {
	UserID string `json:"userId"`
	State  string `json:"state"`
}

// EventPresenceSnapshotData lists users online when the connection bound.
type EventPresenceSnapshotData struct {
	Users []string `json:"users"`
}

// EventMessageData is a persisted chat message.
type EventMessageData struct {
	ID          int64  `json:"id"`
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Body        string `json:"body"`
	CreatedAt   int64  `json:"createdAt"` // unix millis
	Delivered   bool   `json:"delivered"`
}

// EventTypingData identifies who is (or stopped) typing.
type EventTypingData struct {
	SenderID string `json:"senderId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
