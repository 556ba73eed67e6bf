package domain

// Command is an intent sent by one connection to the coordinator.
type Command interface {
	Origin() ConnectionID
}

type CreateRoomCommand struct {
	Conn ConnectionID
}

func (c CreateRoomCommand) Origin() ConnectionID { return c.Conn }

type JoinRoomCommand struct {
	Conn   ConnectionID
	Room   RoomID
	Member MemberID
}

func (c JoinRoomCommand) Origin() ConnectionID { return c.Conn }

type LeaveRoomCommand struct {
	Conn ConnectionID
}

func (c LeaveRoomCommand) Origin() ConnectionID { return c.Conn }

type SendCodeCommand struct {
	Conn ConnectionID
	Code string
}

func (c SendCodeCommand) Origin() ConnectionID { return c.Conn }

type SendCommentCommand struct {
	Conn    ConnectionID
	Comment string
}

func (c SendCommentCommand) Origin() ConnectionID { return c.Conn }

type ExecuteCodeCommand struct {
	Conn     ConnectionID
	Language Language
	Source   string
}

func (c ExecuteCodeCommand) Origin() ConnectionID { return c.Conn }

type ShareFileCommand struct {
	Conn        ConnectionID
	FileName    string
	FileContent string
}

func (c ShareFileCommand) Origin() ConnectionID { return c.Conn }

// DisconnectCommand is emitted by the transport when a connection drops or closes.
type DisconnectCommand struct {
	Conn ConnectionID
}

func (c DisconnectCommand) Origin() ConnectionID { return c.Conn }

// RejectFrameCommand carries a frame the transport could not decode. The error
// reply goes through the coordinator so it stays ordered with the other replies.
type RejectFrameCommand struct {
	Conn ConnectionID
	Err  error
}

func (c RejectFrameCommand) Origin() ConnectionID { return c.Conn }
