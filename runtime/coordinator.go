package runtime

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"collab-lab/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Coordinator is the single authority over sessions and room membership.
//
// Every command, whether it comes from a connection, a finished execution or the
// janitor, goes through one channel and is applied by the Run goroutine. Nothing
// else writes to the registry, so no two state transitions ever interleave.
//
// State lives on the struct, not in Run, so a restart after a panic keeps every
// session and room.
type Coordinator struct {
	log      *slog.Logger
	registry contract.IRegistry
	executor contract.IExecutor
	censor   contract.ICensor
	commands chan domain.Command
	sessions map[domain.ConnectionID]*session
	holders  map[seat]map[domain.ConnectionID]struct{}
	now      func() time.Time
}

// session pairs the state machine with the outbound side of its connection.
type session struct {
	*domain.Session
	sink contract.EventSink
}

// seat is one member inside one room. Several connections may hold the same seat.
type seat struct {
	room   domain.RoomID
	member domain.MemberID
}

func NewCoordinator(log *slog.Logger, registry contract.IRegistry, executor contract.IExecutor, bufferSize int) *Coordinator {
	return &Coordinator{
		log:      log,
		registry: registry,
		executor: executor,
		commands: make(chan domain.Command, bufferSize),
		sessions: make(map[domain.ConnectionID]*session),
		holders:  make(map[seat]map[domain.ConnectionID]struct{}),
		now:      time.Now,
	}
}

// WithCensor enables comment moderation.
func (c *Coordinator) WithCensor(censor contract.ICensor) *Coordinator {
	c.censor = censor
	return c
}

// Internal commands. They never come from a client.
type (
	connectCommand struct {
		conn domain.ConnectionID
		sink contract.EventSink
	}
	executionFinishedCommand struct {
		conn   domain.ConnectionID
		result domain.ExecutionResult
	}
	reapCommand struct {
		ttl time.Duration
	}
	roomsQuery struct {
		reply chan []domain.RoomSnapshot
	}
)

func (c connectCommand) Origin() domain.ConnectionID           { return c.conn }
func (c executionFinishedCommand) Origin() domain.ConnectionID { return c.conn }
func (reapCommand) Origin() domain.ConnectionID                { return "" }
func (roomsQuery) Origin() domain.ConnectionID                 { return "" }

// Connect registers a new connection in the Unjoined state.
// It must be called before any command for conn is dispatched.
func (c *Coordinator) Connect(ctx context.Context, conn domain.ConnectionID, sink contract.EventSink) error {
	return c.Dispatch(ctx, connectCommand{conn: conn, sink: sink})
}

// Dispatch enqueues cmd. It blocks while the queue is full, until ctx is done.
func (c *Coordinator) Dispatch(ctx context.Context, cmd domain.Command) error {
	select {
	case c.commands <- cmd:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errors.ErrCoordinatorDown, ctx.Err())
	}
}

// Rooms returns the registry listing. The query is ordered with every command
// dispatched before it.
func (c *Coordinator) Rooms(ctx context.Context) ([]domain.RoomSnapshot, error) {
	q := roomsQuery{reply: make(chan []domain.RoomSnapshot, 1)}
	if err := c.Dispatch(ctx, q); err != nil {
		return nil, err
	}
	select {
	case rooms := <-q.reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", errors.ErrCoordinatorDown, ctx.Err())
	}
}

// Reap asks the coordinator to drop rooms that have been empty for at least ttl.
func (c *Coordinator) Reap(ctx context.Context, ttl time.Duration) error {
	return c.Dispatch(ctx, reapCommand{ttl: ttl})
}

func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		case <-ctx.Done():
			c.log.Debug("Context done, coordinator stopping", "sessions", len(c.sessions))
			return nil
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, cmd domain.Command) {
	switch cmd := cmd.(type) {
	case connectCommand:
		c.connect(cmd)
		return
	case executionFinishedCommand:
		c.executionFinished(ctx, cmd)
		return
	case reapCommand:
		c.reap(cmd)
		return
	case roomsQuery:
		cmd.reply <- c.registry.Rooms()
		return
	}

	s, ok := c.sessions[cmd.Origin()]
	if !ok {
		c.log.Warn("Command for unknown connection dropped",
			"conn_id", cmd.Origin(),
			"command", fmt.Sprintf("%T", cmd),
			"error", errors.ErrUnknownSession)
		return
	}

	switch cmd := cmd.(type) {
	case domain.CreateRoomCommand:
		c.createRoom(ctx, s)
	case domain.JoinRoomCommand:
		c.joinRoom(ctx, s, cmd)
	case domain.LeaveRoomCommand:
		c.leaveRoom(ctx, s)
	case domain.SendCodeCommand:
		c.sendCode(ctx, s, cmd)
	case domain.SendCommentCommand:
		c.sendComment(ctx, s, cmd)
	case domain.ExecuteCodeCommand:
		c.executeCode(ctx, s, cmd)
	case domain.ShareFileCommand:
		c.shareFile(ctx, s, cmd)
	case domain.DisconnectCommand:
		c.disconnect(ctx, s)
	case domain.RejectFrameCommand:
		c.fail(ctx, s, cmd.Err)
	default:
		c.log.Warn("Unhandled command", "conn_id", s.Conn, "command", fmt.Sprintf("%T", cmd))
		c.fail(ctx, s, errors.ErrUnknownEvent)
	}
}

func (c *Coordinator) connect(cmd connectCommand) {
	if _, exists := c.sessions[cmd.conn]; exists {
		c.log.Warn("Connection registered twice, keeping the first one", "conn_id", cmd.conn)
		return
	}
	c.sessions[cmd.conn] = &session{Session: domain.NewSession(cmd.conn), sink: cmd.sink}
	observability.ActiveConnections.Set(float64(len(c.sessions)))
	c.log.Debug("Connection registered", "conn_id", cmd.conn)
}

func (c *Coordinator) createRoom(ctx context.Context, s *session) {
	room := c.registry.CreateRoom()
	observability.Rooms.Inc()
	c.log.Info("Room created", "room_id", room, "conn_id", s.Conn)
	c.send(ctx, s, event.RoomCreated{Room: room})
}

func (c *Coordinator) joinRoom(ctx context.Context, s *session, cmd domain.JoinRoomCommand) {
	if s.State == domain.InRoom {
		c.fail(ctx, s, errors.ErrAlreadyInRoom)
		return
	}
	if err := c.registry.Join(cmd.Room, cmd.Member); err != nil {
		c.log.Debug("Join refused", "conn_id", s.Conn, "room_id", cmd.Room, "member_id", cmd.Member, "error", err)
		c.fail(ctx, s, err)
		return
	}

	st := seat{room: cmd.Room, member: cmd.Member}
	alreadySeated := len(c.holders[st]) > 0
	s.Enter(cmd.Room, cmd.Member)
	c.hold(st, s.Conn)
	c.log.Info("Member joined", "room_id", cmd.Room, "member_id", cmd.Member, "conn_id", s.Conn)

	// A second connection for a seated member does not change presence.
	if alreadySeated {
		return
	}
	c.broadcastToRoom(ctx, cmd.Room, s.Conn, event.PresenceChanged{Member: cmd.Member, Joined: true})
}

func (c *Coordinator) leaveRoom(ctx context.Context, s *session) {
	if s.State != domain.InRoom {
		c.fail(ctx, s, errors.ErrNotInRoom)
		return
	}
	c.vacate(ctx, s)
	s.Exit()
}

func (c *Coordinator) sendCode(ctx context.Context, s *session, cmd domain.SendCodeCommand) {
	if s.State != domain.InRoom {
		c.fail(ctx, s, errors.ErrNotInRoom)
		return
	}
	c.broadcastToRoom(ctx, s.Room, s.Conn, event.CodeUpdated{Code: cmd.Code})
}

func (c *Coordinator) sendComment(ctx context.Context, s *session, cmd domain.SendCommentCommand) {
	if s.State != domain.InRoom {
		c.fail(ctx, s, errors.ErrNotInRoom)
		return
	}
	comment := cmd.Comment
	if c.censor != nil {
		censored, found := c.censor.Censor(comment)
		if len(found) > 0 {
			c.log.Debug("Comment censored", "room_id", s.Room, "member_id", s.Member, "words", found)
		}
		comment = censored
	}
	c.broadcastToRoom(ctx, s.Room, s.Conn, event.CommentPosted{Comment: comment})
}

// executeCode never blocks the coordinator: the sandbox runs in its own goroutine
// and the result comes back as an executionFinishedCommand.
func (c *Coordinator) executeCode(ctx context.Context, s *session, cmd domain.ExecuteCodeCommand) {
	conn := s.Conn
	req := domain.ExecutionRequest{Language: cmd.Language, Source: cmd.Source}
	c.log.Debug("Execution requested", "conn_id", conn, "language", cmd.Language)

	go func() {
		result := c.executor.Execute(ctx, req)
		if err := c.Dispatch(ctx, executionFinishedCommand{conn: conn, result: result}); err != nil {
			c.log.Debug("Execution result lost", "conn_id", conn, "error", err)
		}
	}()
}

func (c *Coordinator) executionFinished(ctx context.Context, cmd executionFinishedCommand) {
	s, ok := c.sessions[cmd.conn]
	if !ok {
		c.log.Debug("Execution result discarded, connection is gone",
			"conn_id", cmd.conn,
			"status", cmd.result.Status)
		return
	}
	c.send(ctx, s, event.CodeOutput{Result: cmd.result})
}

// shareFile reaches every other connection of the process, joined or not.
func (c *Coordinator) shareFile(ctx context.Context, s *session, cmd domain.ShareFileCommand) {
	evt := event.FileShared{
		FileName:    cmd.FileName,
		FileContent: cmd.FileContent,
		MimeType:    mimetype.Detect([]byte(cmd.FileContent)).String(),
	}
	c.log.Info("File shared", "conn_id", s.Conn, "file_name", cmd.FileName, "mime_type", evt.MimeType)
	for conn, target := range c.sessions {
		if conn == s.Conn {
			continue
		}
		c.send(ctx, target, evt)
	}
}

func (c *Coordinator) disconnect(ctx context.Context, s *session) {
	if s.State == domain.InRoom {
		c.vacate(ctx, s)
	}
	s.Close()
	delete(c.sessions, s.Conn)
	observability.ActiveConnections.Set(float64(len(c.sessions)))
	c.log.Debug("Connection closed", "conn_id", s.Conn)
}

// vacate releases the seat held by s. The member only leaves the room, and
// the others only hear about it, when no other connection holds the same seat.
func (c *Coordinator) vacate(ctx context.Context, s *session) {
	st := seat{room: s.Room, member: s.Member}
	if c.release(st, s.Conn) > 0 {
		c.log.Debug("Seat still held by another connection", "room_id", st.room, "member_id", st.member)
		return
	}
	c.registry.Leave(st.room, st.member)
	c.log.Info("Member left", "room_id", st.room, "member_id", st.member, "conn_id", s.Conn)
	c.broadcastToRoom(ctx, st.room, s.Conn, event.PresenceChanged{Member: st.member, Joined: false})
}

func (c *Coordinator) reap(cmd reapCommand) {
	reaped := c.registry.Reap(c.now(), cmd.ttl)
	if len(reaped) == 0 {
		return
	}
	observability.Rooms.Sub(float64(len(reaped)))
	c.log.Info("Idle rooms reaped", "count", len(reaped), "rooms", reaped)
}

// broadcastToRoom delivers evt to every connection seated in room, except exclude.
func (c *Coordinator) broadcastToRoom(ctx context.Context, room domain.RoomID, exclude domain.ConnectionID, evt event.DomainEvent) {
	for _, member := range c.registry.MembersOf(room) {
		for conn := range c.holders[seat{room: room, member: member}] {
			if conn == exclude {
				continue
			}
			if target, ok := c.sessions[conn]; ok {
				c.send(ctx, target, evt)
			}
		}
	}
}

func (c *Coordinator) send(ctx context.Context, s *session, evt event.DomainEvent) {
	if err := s.sink.Consume(ctx, evt); err != nil {
		c.log.Debug("Event not delivered", "conn_id", s.Conn, "event", evt.Name(), "error", err)
	}
}

// fail reports err to the requesting connection only.
func (c *Coordinator) fail(ctx context.Context, s *session, err error) {
	c.send(ctx, s, event.ErrorRaised{Message: errors.UserMessage(err)})
}

func (c *Coordinator) hold(st seat, conn domain.ConnectionID) {
	conns, ok := c.holders[st]
	if !ok {
		conns = make(map[domain.ConnectionID]struct{})
		c.holders[st] = conns
	}
	conns[conn] = struct{}{}
}

// release returns how many connections still hold st.
func (c *Coordinator) release(st seat, conn domain.ConnectionID) int {
	conns := c.holders[st]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(c.holders, st)
		return 0
	}
	return len(conns)
}
