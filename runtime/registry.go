package runtime

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Registry is the in-memory room directory.
// The coordinator is its only writer; the lock keeps debug readers and tests safe.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID]*domain.Room),
		now:   time.Now,
	}
}

// CreateRoom allocates an empty room under a fresh identifier.
// A collision would merge two rooms, so an id already present is regenerated.
func (r *Registry) CreateRoom() domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := domain.NewRoomID()
	for {
		if _, taken := r.rooms[id]; !taken {
			break
		}
		id = domain.NewRoomID()
	}
	r.rooms[id] = domain.NewRoom(id, r.now())
	return id
}

// Join adds memberID to the room. Joining twice is a no-op.
func (r *Registry) Join(roomID domain.RoomID, memberID domain.MemberID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return errors.ErrRoomNotFound
	}
	room.Add(memberID)
	return nil
}

// Leave removes memberID if present.
// A missing room is not an error: a disconnect may arrive after the room was reaped.
func (r *Registry) Leave(roomID domain.RoomID, memberID domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		room.Remove(memberID, r.now())
	}
}

// MembersOf returns a snapshot of the room members, nil if the room doesn't exist.
func (r *Registry) MembersOf(roomID domain.RoomID) []domain.MemberID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return room.Members()
}

// Rooms lists every room sorted by creation time.
func (r *Registry) Rooms() []domain.RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := lo.MapToSlice(r.rooms, func(id domain.RoomID, room *domain.Room) domain.RoomSnapshot {
		s := domain.RoomSnapshot{
			ID:        id,
			Members:   room.Members(),
			CreatedAt: room.CreatedAt,
		}
		if !room.EmptySince.IsZero() {
			s.EmptySince = lo.ToPtr(room.EmptySince)
		}
		return s
	})
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Reap deletes rooms that have been empty for at least ttl and returns their ids.
// Occupied rooms are never reaped.
func (r *Registry) Reap(now time.Time, ttl time.Duration) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []domain.RoomID
	for id, room := range r.rooms {
		if room.Len() > 0 || room.EmptySince.IsZero() {
			continue
		}
		if now.Sub(room.EmptySince) >= ttl {
			delete(r.rooms, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}
