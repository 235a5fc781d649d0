package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventBound confirms that the connection is bound to a user.
	EventBound EventKind = iota
	// EventPresence notifies every connection about an online/offline transition.
	EventPresence
	// EventPresenceSnapshot lists the users online at bind time.
	EventPresenceSnapshot
	// EventMessage delivers a chat message to a recipient connection.
	EventMessage
	// EventMessageSent echoes the persisted message back to the sending connection.
	EventMessageSent
	// EventTyping tells a recipient that a sender started typing.
	EventTyping
	// EventTypingStopped tells a recipient that a sender stopped typing.
	EventTypingStopped
	// EventError notifies clients about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventBound:
		return "bound"
	case EventPresence:
		return "presence"
	case EventPresenceSnapshot:
		return "presence_snapshot"
	case EventMessage:
		return "message"
	case EventMessageSent:
		return "message_sent"
	case EventTyping:
		return "typing"
	case EventTypingStopped:
		return "typing_stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// PresenceState is the advisory online/offline state of a user.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

// Event is sent to clients to describe what happened in the system.
// Events are shared between connections and must not be mutated once sent.
type Event struct {
	Kind     EventKind
	User     string // subject user: presence owner, typing sender, bound user
	ConnID   string // for EventBound
	Presence PresenceState
	Users    []string // for EventPresenceSnapshot
	Message  ChatMessage
	Error    *CoreError
}
