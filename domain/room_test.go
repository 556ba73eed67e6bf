package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoom_Add_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	room := NewRoom(NewRoomID(), now)

	// Given an empty room
	req.Equal(now, room.EmptySince)

	// When the same member is added twice
	room.Add("alice")
	room.Add("alice")

	// Then the set holds it once and the room is no longer empty
	req.Equal(1, room.Len())
	req.True(room.EmptySince.IsZero())
}

func TestRoom_Remove_Absent_Member_Keeps_State(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	room := NewRoom(NewRoomID(), now)
	room.Add("alice")

	room.Remove("bob", now.Add(time.Second))

	req.True(room.Has("alice"))
	req.True(room.EmptySince.IsZero())
}

func TestRoom_Remove_Last_Member_Marks_Empty(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	room := NewRoom(NewRoomID(), now)
	room.Add("alice")

	later := now.Add(time.Minute)
	room.Remove("alice", later)

	req.Equal(0, room.Len())
	req.Equal(later, room.EmptySince)
}

func TestNewRoomID_Unique_And_Prefixed(t *testing.T) {
	req := require.New(t)
	seen := make(map[RoomID]struct{})
	for i := 0; i < 1000; i++ {
		id := NewRoomID()
		req.True(strings.HasPrefix(string(id), roomPrefix))
		_, dup := seen[id]
		req.False(dup)
		seen[id] = struct{}{}
	}
}

func TestSession_Transitions(t *testing.T) {
	req := require.New(t)
	s := NewSession(NewConnectionID())
	req.Equal(Unjoined, s.State)

	s.Enter("room_1", "alice")
	req.Equal(InRoom, s.State)
	req.Equal(RoomID("room_1"), s.Room)
	req.Equal(MemberID("alice"), s.Member)

	s.Exit()
	req.Equal(Unjoined, s.State)
	req.Empty(s.Room)

	s.Close()
	req.Equal(Disconnected, s.State)
	req.Equal("disconnected", s.State.String())
}
