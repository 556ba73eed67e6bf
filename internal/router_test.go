package internal

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"collab-lab/mocks"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRouter_Debug_Rooms(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	coordinator := mocks.NewMockICoordinator(ctrl)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	coordinator.EXPECT().
		Rooms(gomock.Any()).
		Return([]domain.RoomSnapshot{{ID: "room_1", Members: []domain.MemberID{"alice"}, CreatedAt: created}}, nil).
		Times(1)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ts := httptest.NewServer(NewRouter(log, []string{"*"}, coordinator, func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	// When the debug listing is requested
	resp, err := http.Get(ts.URL + "/debug/rooms")
	req.NoError(err)
	defer resp.Body.Close()

	// Then the rooms are rendered as JSON
	req.Equal(http.StatusOK, resp.StatusCode)
	var page RoomsPage
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Equal(1, page.Count)
	req.Equal(domain.RoomID("room_1"), page.Rooms[0].ID)
	req.Equal([]domain.MemberID{"alice"}, page.Rooms[0].Members)
	req.Nil(page.Rooms[0].EmptySince)
}

func TestRouter_Debug_Rooms_Coordinator_Down(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	coordinator := mocks.NewMockICoordinator(ctrl)
	coordinator.EXPECT().Rooms(gomock.Any()).Return(nil, errors.ErrCoordinatorDown).Times(1)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ts := httptest.NewServer(NewRouter(log, []string{"*"}, coordinator, func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/debug/rooms")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_Health_Metrics_And_Cors(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	coordinator := mocks.NewMockICoordinator(ctrl)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ts := httptest.NewServer(NewRouter(log, []string{"http://localhost:3000"}, coordinator, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	req.NoError(err)
	req.Contains(string(body), "collab_connections_active")

	// The websocket route is mounted as given
	resp, err = http.Get(ts.URL + "/ws")
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusTeapot, resp.StatusCode)

	// Allowed origins get the CORS header, others don't
	r, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	resp, err = http.DefaultClient.Do(r)
	req.NoError(err)
	resp.Body.Close()
	req.Equal("http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	r.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(r)
	req.NoError(err)
	resp.Body.Close()
	req.Empty(resp.Header.Get("Access-Control-Allow-Origin"))
}
