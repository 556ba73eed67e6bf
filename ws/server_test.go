package ws

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/mocks"
	"collab-lab/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func startServer(t *testing.T, executor contract.IExecutor, origins []string) string {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	coordinator := runtime.NewCoordinator(log, runtime.NewRegistry(), executor, 64)
	go func() { _ = coordinator.Run(ctx) }()

	srv := NewServer(ctx, log, coordinator, Config{
		AllowedOrigins:  origins,
		MaxMessageBytes: 1 << 20,
		BufferSize:      16,
		PingInterval:    time.Second,
	})
	ts := httptest.NewServer(http.HandlerFunc(srv.ServeWS))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, url string) *client {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(evt string, data any) {
	frame := map[string]any{"event": evt}
	if data != nil {
		frame["data"] = data
	}
	require.NoError(c.t, c.conn.WriteJSON(frame))
}

func (c *client) sendRaw(raw string) {
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (c *client) next() (string, map[string]any) {
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	_, raw, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	require.NoError(c.t, json.Unmarshal(raw, &env))
	return env.Event, env.Data
}

func (c *client) expect(evt string) map[string]any {
	got, data := c.next()
	require.Equal(c.t, evt, got, "data=%v", data)
	return data
}

// barrier proves every earlier frame of c was applied and that c received
// nothing in between: the next frame must be the reply to a fresh create-room.
func (c *client) barrier() {
	c.send(CreateRoom, nil)
	c.expect("room-created")
}

func (c *client) createRoom() string {
	c.send(CreateRoom, nil)
	data := c.expect("room-created")
	return data["roomId"].(string)
}

func (c *client) join(room, member string) {
	c.send(JoinRoom, map[string]string{"roomId": room, "memberId": member})
	c.barrier()
}

func TestServer_Room_Scoped_Collaboration(t *testing.T) {
	req := require.New(t)
	url := startServer(t, nil, []string{"*"})
	alice := dial(t, url)
	bob := dial(t, url)
	carol := dial(t, url)

	// Given alice and bob in the same room, carol connected but unjoined
	room := alice.createRoom()
	alice.join(room, "alice")
	bob.join(room, "bob")
	req.Equal(map[string]any{"memberId": "bob"}, alice.expect("user-joined"))

	// When alice edits the code
	alice.send(SendCode, map[string]string{"code": "print(1)"})
	alice.send(SendComment, map[string]string{"comment": "try this"})

	// Then bob receives both, carol and alice receive nothing
	req.Equal(map[string]any{"code": "print(1)"}, bob.expect("receive-code"))
	req.Equal(map[string]any{"comment": "try this"}, bob.expect("receive-comment"))
	carol.barrier()
	alice.barrier()
}

func TestServer_Share_File_Is_Global(t *testing.T) {
	req := require.New(t)
	url := startServer(t, nil, []string{"*"})
	alice := dial(t, url)
	bob := dial(t, url)
	carol := dial(t, url)

	room := alice.createRoom()
	alice.join(room, "alice")
	bob.join(room, "bob")
	alice.expect("user-joined")
	carol.barrier()

	// When alice shares a file
	alice.send(ShareFile, map[string]string{"fileName": "notes.md", "fileContent": "hello"})

	// Then every other connection gets it, joined or not
	for _, c := range []*client{bob, carol} {
		data := c.expect("file-shared")
		req.Equal("notes.md", data["fileName"])
		req.Equal("hello", data["fileContent"])
		req.Equal("text/plain; charset=utf-8", data["mimeType"])
	}
	alice.barrier()
}

func TestServer_Join_Unknown_Room(t *testing.T) {
	req := require.New(t)
	url := startServer(t, nil, []string{"*"})
	alice := dial(t, url)

	alice.send(JoinRoom, map[string]string{"roomId": "room_nope", "memberId": "alice"})

	req.Equal(map[string]any{"message": "Room does not exist"}, alice.expect("error"))
}

func TestServer_Bad_Frames_Keep_The_Connection(t *testing.T) {
	req := require.New(t)
	url := startServer(t, nil, []string{"*"})
	alice := dial(t, url)

	// When garbage and unknown events arrive
	alice.sendRaw("not json")
	data := alice.expect("error")
	req.True(strings.HasPrefix(data["message"].(string), "Invalid payload"))

	alice.send("drop-table", nil)
	data = alice.expect("error")
	req.True(strings.HasPrefix(data["message"].(string), "Unknown event"))

	// Then the connection still works
	alice.barrier()
}

func TestServer_Bad_Frame_Error_Follows_Earlier_Replies(t *testing.T) {
	url := startServer(t, nil, []string{"*"})
	alice := dial(t, url)

	// When a valid frame is immediately followed by garbage
	alice.send(CreateRoom, nil)
	alice.sendRaw("{")

	// Then the replies arrive in the order the frames were sent
	alice.expect("room-created")
	alice.expect("error")
	alice.barrier()
}

func TestServer_Disconnect_Notifies_Room(t *testing.T) {
	req := require.New(t)
	url := startServer(t, nil, []string{"*"})
	alice := dial(t, url)
	bob := dial(t, url)
	room := alice.createRoom()
	alice.join(room, "alice")
	bob.join(room, "bob")
	alice.expect("user-joined")

	// When bob's socket goes away
	req.NoError(bob.conn.Close())

	// Then alice sees exactly one user-left
	req.Equal(map[string]any{"memberId": "bob"}, alice.expect("user-left"))
	alice.barrier()
}

func TestServer_Execute_Code_Replies_To_Sender(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	executor := mocks.NewMockIExecutor(ctrl)
	executor.EXPECT().
		Execute(gomock.Any(), domain.ExecutionRequest{Language: domain.JavaScript, Source: "console.log(2+2)"}).
		Return(domain.ExecutionResult{Status: domain.StatusSuccess, Output: "4\n"}).
		Times(1)

	url := startServer(t, executor, []string{"*"})
	alice := dial(t, url)
	bob := dial(t, url)
	room := alice.createRoom()
	alice.join(room, "alice")
	bob.join(room, "bob")
	alice.expect("user-joined")

	alice.send(ExecuteCode, map[string]string{"language": "js", "code": "console.log(2+2)"})

	data := alice.expect("code-output")
	req.Equal("4\n", data["output"])
	req.Equal("success", data["status"])
	req.Equal(false, data["timedOut"])
	bob.barrier()
}

func TestServer_Rejects_Foreign_Origin(t *testing.T) {
	req := require.New(t)
	url := startServer(t, nil, []string{"http://localhost:3000"})

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	req.NoError(err)
	_ = conn.Close()
}
