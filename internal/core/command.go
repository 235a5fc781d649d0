package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandBind binds the connection to a verified user identity.
	CommandBind CommandKind = iota
	// CommandSendMessage routes a chat message to a recipient.
	CommandSendMessage
	// CommandTypingStart marks the sender as typing to a recipient.
	CommandTypingStart
	// CommandTypingStop clears the sender's typing state for a recipient.
	CommandTypingStop
)

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	User        string // CommandBind: claimed identity (trusted mode)
	Token       string // CommandBind: credential for the verifier
	RecipientID string
	Body        string
}
