// Package domain contains core concepts of the collaboration system.
// This file defines the per-connection session state machine.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

type SessionState int

const (
	Unjoined SessionState = iota
	InRoom
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case InRoom:
		return "in_room"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the coordinator's view of one connection.
// Room and Member are only meaningful while State is InRoom.
type Session struct {
	Conn   ConnectionID
	State  SessionState
	Room   RoomID
	Member MemberID
}

func NewSession(conn ConnectionID) *Session {
	return &Session{Conn: conn, State: Unjoined}
}

func (s *Session) Enter(room RoomID, member MemberID) {
	s.State = InRoom
	s.Room = room
	s.Member = member
}

func (s *Session) Exit() {
	s.State = Unjoined
	s.Room = ""
	s.Member = ""
}

func (s *Session) Close() {
	s.Exit()
	s.State = Disconnected
}
