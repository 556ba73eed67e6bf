package internal

import (
	"collab-lab/observability"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

// NewRouter wires every HTTP route behind the CORS policy.
func NewRouter(log *slog.Logger, origins []string, rooms RoomLister, serveWS http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/debug/rooms", RoomsHandler(log, rooms))
	mux.HandleFunc("/ws", serveWS)

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(mux)
}
