package workers

import (
	"context"
	"log/slog"
	"time"
)

type RoomReaper interface {
	Reap(ctx context.Context, ttl time.Duration) error
}

// RoomJanitor periodically asks the coordinator to drop rooms left empty for longer than ttl.
type RoomJanitor struct {
	log      *slog.Logger
	reaper   RoomReaper
	interval time.Duration
	ttl      time.Duration
}

func NewRoomJanitor(log *slog.Logger, reaper RoomReaper, interval, ttl time.Duration) *RoomJanitor {
	return &RoomJanitor{log: log, reaper: reaper, interval: interval, ttl: ttl}
}

func (w *RoomJanitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping room janitor")
			return nil
		case <-ticker.C:
			if err := w.reaper.Reap(ctx, w.ttl); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
