package domain

import "time"

// Process is a sandbox child reported to the sandbox monitor.
// The executor reports it twice: once started, then with Exited set once reaped.
type Process struct {
	PID       PID
	Language  Language
	StartedAt time.Time
	Exited    bool
}

type PID int32
