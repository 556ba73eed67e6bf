package domain

import (
	"time"

	"github.com/google/uuid"
)

const roomPrefix = "room_"

type RoomID string

type MemberID string

type Set map[MemberID]struct{}

// Room is a collaboration scope. Members are kept as a set, so joining twice is a no-op.
type Room struct {
	ID         RoomID
	members    Set
	CreatedAt  time.Time
	EmptySince time.Time
}

// NewRoomID returns a fresh room identifier backed by a random UUID.
func NewRoomID() RoomID {
	return RoomID(roomPrefix + uuid.NewString())
}

func NewRoom(id RoomID, now time.Time) *Room {
	return &Room{
		ID:         id,
		members:    make(Set),
		CreatedAt:  now,
		EmptySince: now,
	}
}

func (r *Room) Add(member MemberID) {
	r.members[member] = struct{}{}
	r.EmptySince = time.Time{}
}

func (r *Room) Remove(member MemberID, now time.Time) {
	if _, ok := r.members[member]; !ok {
		return
	}
	delete(r.members, member)
	if len(r.members) == 0 {
		r.EmptySince = now
	}
}

func (r *Room) Has(member MemberID) bool {
	_, ok := r.members[member]
	return ok
}

func (r *Room) Len() int { return len(r.members) }

// Members returns a copy of the member set as a slice.
func (r *Room) Members() []MemberID {
	out := make([]MemberID, 0, len(r.members))
	for m := range r.members {
		out = append(out, m)
	}
	return out
}

// RoomSnapshot is a read-only view of a room used by debug listings.
type RoomSnapshot struct {
	ID         RoomID     `json:"roomId"`
	Members    []MemberID `json:"members"`
	CreatedAt  time.Time  `json:"createdAt"`
	EmptySince *time.Time `json:"emptySince,omitempty"`
}
