package internal

import (
	"collab-lab/domain"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const debugQueryTimeout = 2 * time.Second

// RoomLister is the read side of the coordinator used by debug endpoints.
type RoomLister interface {
	Rooms(ctx context.Context) ([]domain.RoomSnapshot, error)
}

// RoomsPage is the JSON body served on /debug/rooms.
type RoomsPage struct {
	Count int                   `json:"count"`
	Rooms []domain.RoomSnapshot `json:"rooms"`
	At    time.Time             `json:"at"`
}

// RoomsHandler lists live rooms. The listing goes through the coordinator queue,
// so it never observes a half-applied command.
func RoomsHandler(log *slog.Logger, lister RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), debugQueryTimeout)
		defer cancel()

		rooms, err := lister.Rooms(ctx)
		if err != nil {
			log.Warn("Debug rooms listing failed", "error", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if rooms == nil {
			rooms = []domain.RoomSnapshot{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RoomsPage{Count: len(rooms), Rooms: rooms, At: time.Now().UTC()})
	}
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
