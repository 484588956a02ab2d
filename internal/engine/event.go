package engine

// Event is one normalized inbound chat event. It is a closed union:
// the controller dispatches on the concrete type, never on field presence.
type Event interface {
	isEvent()
}

// MessageEvent is a text message posted in a group chat.
type MessageEvent struct {
	ChatID    int64
	UserID    int64
	FirstName string
	Username  string
	Text      string
	// Date is the server-assigned unix timestamp of the message. Deadline
	// checks compare it against the game's update_time anchor.
	Date int64
}

// CallbackEvent is an inline-button press.
type CallbackEvent struct {
	ID        string
	ChatID    int64
	UserID    int64
	FirstName string
	Username  string
	Data      string
	// MessageDate is the unix timestamp of the message carrying the button.
	MessageDate int64
}

func (*MessageEvent) isEvent()  {}
func (*CallbackEvent) isEvent() {}
