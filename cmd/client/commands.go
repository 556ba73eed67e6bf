package main

import (
	"collab-lab/domain/event"
	"collab-lab/ws"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gookit/color"
)

var errUsage = errors.New("usage")

const help = `/create                      create a room
/join <room> <member>        join a room
/leave                       leave the current room
/code <text>                 replace the shared code
/run <js|python> <code>      execute a snippet
/share <path>                share a file with everyone
<text>                       post a comment`

// parseLine turns one line typed by the user into an outbound frame.
// readFile is only used by /share.
func parseLine(line string, readFile func(string) ([]byte, error)) ([]byte, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", errUsage)
	}
	if !strings.HasPrefix(line, "/") {
		return frame(ws.SendComment, ws.SendCommentPayload{Comment: line})
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/create":
		return frame(ws.CreateRoom, nil)
	case "/leave":
		return frame(ws.LeaveRoom, nil)
	case "/join":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: /join <room> <member>", errUsage)
		}
		return frame(ws.JoinRoom, ws.JoinRoomPayload{RoomID: fields[0], MemberID: fields[1]})
	case "/code":
		return frame(ws.SendCode, ws.SendCodePayload{Code: rest})
	case "/run":
		language, code, ok := strings.Cut(rest, " ")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("%w: /run <language> <code>", errUsage)
		}
		return frame(ws.ExecuteCode, ws.ExecuteCodePayload{Language: language, Code: code})
	case "/share":
		if rest == "" {
			return nil, fmt.Errorf("%w: /share <path>", errUsage)
		}
		content, err := readFile(rest)
		if err != nil {
			return nil, err
		}
		return frame(ws.ShareFile, ws.ShareFilePayload{FileName: baseName(rest), FileContent: string(content)})
	default:
		return nil, fmt.Errorf("%w: unknown command %s", errUsage, name)
	}
}

func frame(name string, payload any) ([]byte, error) {
	envelope := ws.Envelope{Event: name}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		envelope.Data = data
	}
	return json.Marshal(envelope)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// render formats one inbound frame for the terminal.
func render(raw []byte, colours bool) string {
	var envelope ws.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return paint(colours, color.FgRed, fmt.Sprintf("unreadable frame: %s", raw))
	}

	switch event.Name(envelope.Event) {
	case event.RoomCreatedName:
		var p ws.RoomCreatedPayload
		_ = json.Unmarshal(envelope.Data, &p)
		return paint(colours, color.FgGreen, fmt.Sprintf("room created: %s", p.RoomID))
	case event.UserJoinedName:
		var p ws.MemberPayload
		_ = json.Unmarshal(envelope.Data, &p)
		return paint(colours, color.FgCyan, fmt.Sprintf("+ %s joined", p.MemberID))
	case event.UserLeftName:
		var p ws.MemberPayload
		_ = json.Unmarshal(envelope.Data, &p)
		return paint(colours, color.FgCyan, fmt.Sprintf("- %s left", p.MemberID))
	case event.ReceiveCodeName:
		var p ws.SendCodePayload
		_ = json.Unmarshal(envelope.Data, &p)
		return paint(colours, color.FgYellow, "code updated:") + "\n" + p.Code
	case event.ReceiveCommentName:
		var p ws.SendCommentPayload
		_ = json.Unmarshal(envelope.Data, &p)
		return fmt.Sprintf("> %s", p.Comment)
	case event.CodeOutputName:
		var p ws.CodeOutputPayload
		_ = json.Unmarshal(envelope.Data, &p)
		header := fmt.Sprintf("output [%s, exit %d]", p.Status, p.ExitCode)
		if p.TimedOut {
			header += " timed out"
		}
		return paint(colours, color.FgMagenta, header) + "\n" + p.Output
	case event.FileSharedName:
		var p ws.FileSharedPayload
		_ = json.Unmarshal(envelope.Data, &p)
		return paint(colours, color.FgBlue, fmt.Sprintf("file shared: %s (%s, %d bytes)", p.FileName, p.MimeType, len(p.FileContent)))
	case event.ErrorName:
		var p ws.ErrorPayload
		_ = json.Unmarshal(envelope.Data, &p)
		return paint(colours, color.FgRed, fmt.Sprintf("error: %s", p.Message))
	default:
		return fmt.Sprintf("%s %s", envelope.Event, envelope.Data)
	}
}

func paint(colours bool, c color.Color, s string) string {
	if !colours {
		return s
	}
	return c.Render(s)
}
