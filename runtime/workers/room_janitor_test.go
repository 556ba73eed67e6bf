package workers

import (
	"collab-lab/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomJanitor_Reaps_On_Every_Tick(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	reaper := mocks.NewMockICoordinator(ctrl)
	ctx, cancel := context.WithCancel(context.Background())

	ticks := make(chan struct{}, 10)
	reaper.EXPECT().
		Reap(gomock.Any(), time.Hour).
		DoAndReturn(func(context.Context, time.Duration) error {
			ticks <- struct{}{}
			return nil
		}).
		MinTimes(2)

	w := NewRoomJanitor(log, reaper, 10*time.Millisecond, time.Hour)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	<-ticks
	<-ticks
	cancel()
	req.NoError(<-done)
}

func TestRoomJanitor_Fails_When_Coordinator_Is_Down(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	reaper := mocks.NewMockICoordinator(ctrl)
	boom := context.DeadlineExceeded
	reaper.EXPECT().Reap(gomock.Any(), gomock.Any()).Return(boom).Times(1)

	w := NewRoomJanitor(log, reaper, 5*time.Millisecond, time.Minute)

	// The supervisor restarts a failed janitor
	req.ErrorIs(w.Run(context.Background()), boom)
}
