package main

import (
	"collab-lab/ws"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeFrame(t *testing.T, raw []byte, payload any) string {
	t.Helper()
	var envelope ws.Envelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	if payload != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, payload))
	}
	return envelope.Event
}

func noFile(string) ([]byte, error) { return nil, os.ErrNotExist }

func TestParseLine_Plain_Text_Is_A_Comment(t *testing.T) {
	req := require.New(t)

	raw, err := parseLine("  looks good  ", noFile)
	req.NoError(err)

	var p ws.SendCommentPayload
	req.Equal(ws.SendComment, decodeFrame(t, raw, &p))
	req.Equal("looks good", p.Comment)
}

func TestParseLine_Join(t *testing.T) {
	req := require.New(t)

	raw, err := parseLine("/join abc alice", noFile)
	req.NoError(err)

	var p ws.JoinRoomPayload
	req.Equal(ws.JoinRoom, decodeFrame(t, raw, &p))
	req.Equal(ws.JoinRoomPayload{RoomID: "abc", MemberID: "alice"}, p)
}

func TestParseLine_Run_Keeps_The_Whole_Snippet(t *testing.T) {
	req := require.New(t)

	raw, err := parseLine("/run python print(1 + 1)", noFile)
	req.NoError(err)

	var p ws.ExecuteCodePayload
	req.Equal(ws.ExecuteCode, decodeFrame(t, raw, &p))
	req.Equal("python", p.Language)
	req.Equal("print(1 + 1)", p.Code)
}

func TestParseLine_Commands_Without_Data(t *testing.T) {
	req := require.New(t)

	for line, expected := range map[string]string{"/create": ws.CreateRoom, "/leave": ws.LeaveRoom} {
		raw, err := parseLine(line, noFile)
		req.NoError(err)
		var envelope ws.Envelope
		req.NoError(json.Unmarshal(raw, &envelope))
		req.Equal(expected, envelope.Event)
		req.Empty(envelope.Data)
	}
}

func TestParseLine_Share_Reads_The_File(t *testing.T) {
	req := require.New(t)
	readFile := func(path string) ([]byte, error) {
		req.Equal("/tmp/notes.txt", path)
		return []byte("hello"), nil
	}

	raw, err := parseLine("/share /tmp/notes.txt", readFile)
	req.NoError(err)

	var p ws.ShareFilePayload
	req.Equal(ws.ShareFile, decodeFrame(t, raw, &p))
	req.Equal(ws.ShareFilePayload{FileName: "notes.txt", FileContent: "hello"}, p)
}

func TestParseLine_Usage_Errors(t *testing.T) {
	req := require.New(t)

	for _, line := range []string{"", "/join onlyroom", "/run python", "/share", "/dance"} {
		_, err := parseLine(line, noFile)
		req.ErrorIs(err, errUsage, line)
	}

	_, err := parseLine("/share missing.txt", noFile)
	req.ErrorIs(err, os.ErrNotExist)
}

func TestRender(t *testing.T) {
	req := require.New(t)

	req.Equal("room created: r1", render([]byte(`{"event":"room-created","data":{"roomId":"r1"}}`), false))
	req.Equal("+ bob joined", render([]byte(`{"event":"user-joined","data":{"memberId":"bob"}}`), false))
	req.Equal("error: Room does not exist", render([]byte(`{"event":"error","data":{"message":"Room does not exist"}}`), false))
	req.Equal("output [success, exit 0]\n2\n",
		render([]byte(`{"event":"code-output","data":{"output":"2\n","status":"success","exitCode":0}}`), false))
	req.Contains(render([]byte(`not json`), false), "unreadable frame")
}
