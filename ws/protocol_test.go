package ws

import (
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocol_Decode(t *testing.T) {
	req := require.New(t)
	p := NewProtocol()
	const conn domain.ConnectionID = "c1"

	tests := []struct {
		name     string
		frame    string
		expected domain.Command
	}{
		{
			name:     "create room has no data",
			frame:    `{"event":"create-room"}`,
			expected: domain.CreateRoomCommand{Conn: conn},
		},
		{
			name:     "join room",
			frame:    `{"event":"join-room","data":{"roomId":"room_1","memberId":"alice"}}`,
			expected: domain.JoinRoomCommand{Conn: conn, Room: "room_1", Member: "alice"},
		},
		{
			name:     "leave room",
			frame:    `{"event":"leave-room","data":{}}`,
			expected: domain.LeaveRoomCommand{Conn: conn},
		},
		{
			name:     "empty code is a valid edit",
			frame:    `{"event":"send-code","data":{"code":""}}`,
			expected: domain.SendCodeCommand{Conn: conn, Code: ""},
		},
		{
			name:     "comment",
			frame:    `{"event":"send-comment","data":{"comment":"nice"}}`,
			expected: domain.SendCommentCommand{Conn: conn, Comment: "nice"},
		},
		{
			name:     "execute keeps the language tag as sent",
			frame:    `{"event":"execute-code","data":{"language":"ruby","code":"puts 1"}}`,
			expected: domain.ExecuteCodeCommand{Conn: conn, Language: "ruby", Source: "puts 1"},
		},
		{
			name:     "share file",
			frame:    `{"event":"share-file","data":{"fileName":"a.txt","fileContent":"hi"}}`,
			expected: domain.ShareFileCommand{Conn: conn, FileName: "a.txt", FileContent: "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := p.Decode(conn, []byte(tt.frame))
			req.NoError(err, "test=%s", tt.name)
			req.Equal(tt.expected, cmd, "test=%s", tt.name)
		})
	}
}

func TestProtocol_Decode_Rejects(t *testing.T) {
	req := require.New(t)
	p := NewProtocol()

	tests := []struct {
		name  string
		frame string
		err   error
	}{
		{name: "not json", frame: `hello`, err: errors.ErrInvalidPayload},
		{name: "missing event", frame: `{"data":{}}`, err: errors.ErrInvalidPayload},
		{name: "unknown event", frame: `{"event":"drop-table"}`, err: errors.ErrUnknownEvent},
		{name: "join without data", frame: `{"event":"join-room"}`, err: errors.ErrInvalidPayload},
		{name: "join without member", frame: `{"event":"join-room","data":{"roomId":"room_1"}}`, err: errors.ErrInvalidPayload},
		{name: "wrong field type", frame: `{"event":"send-code","data":{"code":42}}`, err: errors.ErrInvalidPayload},
		{name: "execute without language", frame: `{"event":"execute-code","data":{"code":"1"}}`, err: errors.ErrInvalidPayload},
		{name: "share without name", frame: `{"event":"share-file","data":{"fileContent":"x"}}`, err: errors.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := p.Decode("c1", []byte(tt.frame))
			req.ErrorIs(err, tt.err, "test=%s", tt.name)
			req.Nil(cmd)
		})
	}
}

func TestEncode(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		evt      event.DomainEvent
		expected string
	}{
		{event.RoomCreated{Room: "room_1"}, `{"event":"room-created","data":{"roomId":"room_1"}}`},
		{event.PresenceChanged{Member: "bob", Joined: true}, `{"event":"user-joined","data":{"memberId":"bob"}}`},
		{event.PresenceChanged{Member: "bob"}, `{"event":"user-left","data":{"memberId":"bob"}}`},
		{event.CodeUpdated{Code: "x"}, `{"event":"receive-code","data":{"code":"x"}}`},
		{event.CommentPosted{Comment: "y"}, `{"event":"receive-comment","data":{"comment":"y"}}`},
		{
			event.CodeOutput{Result: domain.ExecutionResult{Status: domain.StatusRuntimeError, Output: "Error: boom", ExitCode: 1}},
			`{"event":"code-output","data":{"output":"Error: boom","status":"runtime-error","exitCode":1,"timedOut":false,"truncated":false}}`,
		},
		{
			event.FileShared{FileName: "a.txt", FileContent: "hi", MimeType: "text/plain"},
			`{"event":"file-shared","data":{"fileName":"a.txt","fileContent":"hi","mimeType":"text/plain"}}`,
		},
		{event.ErrorRaised{Message: "Room does not exist"}, `{"event":"error","data":{"message":"Room does not exist"}}`},
	}

	for _, tt := range tests {
		raw, err := Encode(tt.evt)
		req.NoError(err)
		req.JSONEq(tt.expected, string(raw))
	}
}
