package ws

import (
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	CreateRoom  = "create-room"
	JoinRoom    = "join-room"
	LeaveRoom   = "leave-room"
	SendCode    = "send-code"
	SendComment = "send-comment"
	ExecuteCode = "execute-code"
	ShareFile   = "share-file"
)

// Envelope is the frame exchanged in both directions: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required,max=128"`
	MemberID string `json:"memberId" validate:"required,max=128"`
}

type SendCodePayload struct {
	Code string `json:"code"`
}

type SendCommentPayload struct {
	Comment string `json:"comment"`
}

type ExecuteCodePayload struct {
	Language string `json:"language" validate:"required,max=32"`
	Code     string `json:"code"`
}

type ShareFilePayload struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	FileContent string `json:"fileContent"`
}

// Outbound payloads.
type (
	RoomCreatedPayload struct {
		RoomID string `json:"roomId"`
	}
	MemberPayload struct {
		MemberID string `json:"memberId"`
	}
	CodeOutputPayload struct {
		Output    string `json:"output"`
		Status    string `json:"status"`
		ExitCode  int    `json:"exitCode"`
		TimedOut  bool   `json:"timedOut"`
		Truncated bool   `json:"truncated"`
	}
	FileSharedPayload struct {
		FileName    string `json:"fileName"`
		FileContent string `json:"fileContent"`
		MimeType    string `json:"mimeType"`
	}
	ErrorPayload struct {
		Message string `json:"message"`
	}
)

// Protocol translates frames to commands and events to frames.
type Protocol struct {
	validate *validator.Validate
}

func NewProtocol() *Protocol {
	return &Protocol{validate: validator.New()}
}

// Decode turns one inbound frame into a command issued by conn.
// Errors wrap ErrInvalidPayload or ErrUnknownEvent.
func (p *Protocol) Decode(conn domain.ConnectionID, raw []byte) (domain.Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := p.validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	switch env.Event {
	case CreateRoom:
		return domain.CreateRoomCommand{Conn: conn}, nil
	case LeaveRoom:
		return domain.LeaveRoomCommand{Conn: conn}, nil
	case JoinRoom:
		var in JoinRoomPayload
		if err := p.decodeData(env.Data, &in); err != nil {
			return nil, err
		}
		return domain.JoinRoomCommand{Conn: conn, Room: domain.RoomID(in.RoomID), Member: domain.MemberID(in.MemberID)}, nil
	case SendCode:
		var in SendCodePayload
		if err := p.decodeData(env.Data, &in); err != nil {
			return nil, err
		}
		return domain.SendCodeCommand{Conn: conn, Code: in.Code}, nil
	case SendComment:
		var in SendCommentPayload
		if err := p.decodeData(env.Data, &in); err != nil {
			return nil, err
		}
		return domain.SendCommentCommand{Conn: conn, Comment: in.Comment}, nil
	case ExecuteCode:
		var in ExecuteCodePayload
		if err := p.decodeData(env.Data, &in); err != nil {
			return nil, err
		}
		return domain.ExecuteCodeCommand{Conn: conn, Language: domain.Language(in.Language), Source: in.Code}, nil
	case ShareFile:
		var in ShareFilePayload
		if err := p.decodeData(env.Data, &in); err != nil {
			return nil, err
		}
		return domain.ShareFileCommand{Conn: conn, FileName: in.FileName, FileContent: in.FileContent}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
}

func (p *Protocol) decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := p.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// Encode renders evt as an outbound frame.
func Encode(evt event.DomainEvent) ([]byte, error) {
	var data any
	switch e := evt.(type) {
	case event.RoomCreated:
		data = RoomCreatedPayload{RoomID: string(e.Room)}
	case event.PresenceChanged:
		data = MemberPayload{MemberID: string(e.Member)}
	case event.CodeUpdated:
		data = SendCodePayload{Code: e.Code}
	case event.CommentPosted:
		data = SendCommentPayload{Comment: e.Comment}
	case event.CodeOutput:
		data = CodeOutputPayload{
			Output:    e.Result.Output,
			Status:    string(e.Result.Status),
			ExitCode:  e.Result.ExitCode,
			TimedOut:  e.Result.TimedOut,
			Truncated: e.Result.Truncated,
		}
	case event.FileShared:
		data = FileSharedPayload{FileName: e.FileName, FileContent: e.FileContent, MimeType: e.MimeType}
	case event.ErrorRaised:
		data = ErrorPayload{Message: e.Message}
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", errors.ErrUnknownEvent, evt)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: string(evt.Name()), Data: raw})
}
