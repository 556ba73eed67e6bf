package ws

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"collab-lab/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn is one websocket participant. It is the EventSink the coordinator
// delivers to: Consume only enqueues, WriteLoop owns the socket writes.
type Conn struct {
	id           domain.ConnectionID
	socket       *websocket.Conn
	out          chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	pingInterval time.Duration
	log          *slog.Logger
}

func newConn(id domain.ConnectionID, socket *websocket.Conn, bufferSize int, pingInterval time.Duration, log *slog.Logger) *Conn {
	return &Conn{
		id:           id,
		socket:       socket,
		out:          make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		pingInterval: pingInterval,
		log:          log.With("conn_id", id),
	}
}

func (c *Conn) ID() domain.ConnectionID { return c.id }

// Consume never blocks: a full buffer drops the event.
func (c *Conn) Consume(_ context.Context, evt event.DomainEvent) error {
	select {
	case <-c.done:
		return fmt.Errorf("%w: connection closed", errors.ErrTransportFailure)
	default:
	}

	raw, err := Encode(evt)
	if err != nil {
		return err
	}

	select {
	case c.out <- raw:
		observability.DeliveredEvents.WithLabelValues(string(evt.Name())).Inc()
		return nil
	default:
		observability.DroppedEvents.WithLabelValues(string(evt.Name())).Inc()
		c.log.Warn("Outbound buffer full, event dropped", "event", evt.Name())
		return fmt.Errorf("%w: outbound buffer full", errors.ErrTransportFailure)
	}
}

// ReadLoop decodes frames and hands them to the coordinator until the socket fails.
// Bad frames are answered with an error event and never end the connection.
func (c *Conn) ReadLoop(ctx context.Context, coordinator contract.ICoordinator, protocol *Protocol) error {
	pongWait := 2 * c.pingInterval
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("Connection lost", "error", err)
			}
			return fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
		}
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))

		cmd, err := protocol.Decode(c.id, raw)
		if err != nil {
			c.log.Debug("Frame rejected", "error", err)
			cmd = domain.RejectFrameCommand{Conn: c.id, Err: err}
		}
		if err := coordinator.Dispatch(ctx, cmd); err != nil {
			return err
		}
	}
}

// WriteLoop drains the outbound buffer and pings the peer.
// It returns after sending a close frame when ctx is done or the connection is closed.
func (c *Conn) WriteLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case raw := <-c.out:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, raw); err != nil {
				return fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
			}
		case <-ticker.C:
			if err := c.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
			}
		case <-c.done:
			c.sendClose()
			return nil
		case <-ctx.Done():
			c.sendClose()
			return nil
		}
	}
}

func (c *Conn) sendClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// Close marks the connection as gone. Later Consume calls fail fast.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
