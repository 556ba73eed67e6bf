// Package domain contains core concepts of the collaboration system.
// This file defines code execution requests and their classified results.
package domain

import "time"

type Language string

const (
	JavaScript Language = "js"
	Python     Language = "python"
)

type ExecutionStatus string

const (
	StatusSuccess      ExecutionStatus = "success"
	StatusRuntimeError ExecutionStatus = "runtime-error"
	StatusStreamError  ExecutionStatus = "stream-error"
	StatusRejected     ExecutionStatus = "rejected"
)

// ExecutionRequest is transient and one-shot, it is never stored.
type ExecutionRequest struct {
	Language Language
	Source   string
}

// ExecutionResult is the single combined outcome of a sandbox run.
// Output is the text delivered to the requester, Stdout and Stderr keep the raw captures.
type ExecutionResult struct {
	Status    ExecutionStatus
	Output    string
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

func (r ExecutionResult) IsSuccess() bool { return r.Status == StatusSuccess }
