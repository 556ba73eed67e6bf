// Package sandbox runs untrusted snippets in short-lived child processes.
//
// The source text is never handed to a shell. It is written to a private job
// directory and its path is passed in the argument vector of the interpreter,
// so no byte of user input is ever parsed as command syntax.
package sandbox

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"collab-lab/observability"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	unsupportedLanguageOutput = "Unsupported language"
	truncatedMarker           = "\n[output truncated]"
	waitDelay                 = time.Second
	untrackTimeout            = time.Second
	sandboxPath               = "/usr/local/bin:/usr/bin:/bin"
)

type Config struct {
	Timeout          time.Duration
	MaxOutputBytes   int
	MaxConcurrent    int
	AdmissionTimeout time.Duration
	WorkDir          string
	NodeBin          string
	PythonBin        string
}

type commandFactory func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Executor is safe for concurrent use. At most MaxConcurrent sandboxes run at once,
// further requests wait up to AdmissionTimeout for a slot and are rejected after that.
type Executor struct {
	log              *slog.Logger
	languages        map[domain.Language]languageSpec
	timeout          time.Duration
	admissionTimeout time.Duration
	maxOutput        int
	workDir          string
	slots            *semaphore.Weighted
	processes        chan<- domain.Process
	commandContext   commandFactory
}

// NewExecutor builds an executor. processes may be nil; when set, every spawned
// sandbox is reported on it without blocking.
func NewExecutor(log *slog.Logger, cfg Config, processes chan<- domain.Process) *Executor {
	return &Executor{
		log:              log,
		languages:        defaultLanguages(cfg.NodeBin, cfg.PythonBin),
		timeout:          cfg.Timeout,
		admissionTimeout: cfg.AdmissionTimeout,
		maxOutput:        cfg.MaxOutputBytes,
		workDir:          cfg.WorkDir,
		slots:            semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		processes:        processes,
		commandContext:   exec.CommandContext,
	}
}

// Execute runs req and always returns a classified result.
func (e *Executor) Execute(ctx context.Context, req domain.ExecutionRequest) domain.ExecutionResult {
	spec, ok := e.languages[req.Language]
	if !ok {
		e.log.Debug("Execution rejected", "language", req.Language, "error", errors.ErrUnsupportedLanguage)
		return e.observe(req.Language, domain.ExecutionResult{
			Status:   domain.StatusRejected,
			Output:   unsupportedLanguageOutput,
			ExitCode: -1,
		})
	}

	admissionCtx, cancel := context.WithTimeout(ctx, e.admissionTimeout)
	err := e.slots.Acquire(admissionCtx, 1)
	cancel()
	if err != nil {
		e.log.Warn("Execution rejected", "language", req.Language, "error", errors.ErrSandboxBusy)
		return e.observe(req.Language, domain.ExecutionResult{
			Status:   domain.StatusRejected,
			Output:   fmt.Sprintf("Execution rejected: %v", errors.ErrSandboxBusy),
			ExitCode: -1,
		})
	}
	defer e.slots.Release(1)

	return e.observe(req.Language, e.run(ctx, spec, req))
}

func (e *Executor) run(ctx context.Context, spec languageSpec, req domain.ExecutionRequest) domain.ExecutionResult {
	jobDir, err := os.MkdirTemp(e.workDir, "sandbox-*")
	if err != nil {
		return startFailure(fmt.Errorf("prepare job dir: %w", err))
	}
	defer e.cleanup(jobDir)

	sourcePath := filepath.Join(jobDir, "main."+spec.extension)
	if err := os.WriteFile(sourcePath, []byte(req.Source), 0o600); err != nil {
		return startFailure(fmt.Errorf("write source: %w", err))
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append(append([]string{}, spec.args...), sourcePath)
	cmd := e.commandContext(execCtx, spec.binary, args...)
	cmd.Dir = jobDir
	cmd.Env = sandboxEnv(jobDir)
	cmd.WaitDelay = waitDelay
	setPlatformSpecificAttrs(cmd)

	stdout := newBoundedBuffer(e.maxOutput)
	stderr := newBoundedBuffer(e.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		e.log.Error("Sandbox failed to start", "language", req.Language, "error", err)
		return startFailure(err)
	}
	proc := domain.Process{PID: domain.PID(cmd.Process.Pid), Language: req.Language, StartedAt: started}
	tracked := e.track(proc)

	waitErr := cmd.Wait()
	duration := time.Since(started)
	timedOut := waitErr != nil && stderrors.Is(execCtx.Err(), context.DeadlineExceeded)

	// Whatever the snippet spawned dies with it
	if err := KillGroup(cmd.Process.Pid); err != nil {
		e.log.Warn("Failed to kill sandbox process group", "pid", cmd.Process.Pid, "error", err)
	}
	if tracked {
		proc.Exited = true
		e.untrack(ctx, proc)
	}

	// A leftover child holding stdout open only delays the end of a clean run
	if !timedOut && stderrors.Is(waitErr, exec.ErrWaitDelay) {
		e.log.Debug("Sandbox output still open after exit", "pid", cmd.Process.Pid)
		waitErr = nil
	}

	result := domain.ExecutionResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  duration,
	}
	classify(&result, waitErr, timedOut, e.timeout)

	e.log.Debug("Sandbox finished",
		"language", req.Language,
		"pid", cmd.Process.Pid,
		"status", result.Status,
		"exit_code", result.ExitCode,
		"duration", duration)
	return result
}

// classify maps the process outcome onto the four execution statuses.
func classify(r *domain.ExecutionResult, waitErr error, timedOut bool, timeout time.Duration) {
	switch {
	case timedOut:
		r.Status = domain.StatusRuntimeError
		r.TimedOut = true
		r.ExitCode = -1
		r.Output = withStderr(fmt.Sprintf("Error: %v after %s", errors.ErrExecutionTimeout, timeout), r.Stderr)
	case waitErr != nil:
		r.Status = domain.StatusRuntimeError
		r.ExitCode = -1
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			r.ExitCode = exitErr.ExitCode()
		}
		r.Output = withStderr(fmt.Sprintf("Error: %v", waitErr), r.Stderr)
	case r.Stderr != "":
		r.Status = domain.StatusStreamError
		r.Output = "stderr: " + r.Stderr
	default:
		r.Status = domain.StatusSuccess
		r.Output = r.Stdout
	}
	if r.Truncated {
		r.Output += truncatedMarker
	}
}

func startFailure(err error) domain.ExecutionResult {
	return domain.ExecutionResult{
		Status:   domain.StatusRuntimeError,
		Output:   fmt.Sprintf("Error: %v: %v", errors.ErrExecutionFailure, err),
		ExitCode: -1,
	}
}

func withStderr(msg, stderr string) string {
	if stderr == "" {
		return msg
	}
	return msg + "\n" + strings.TrimRight(stderr, "\n")
}

// sandboxEnv is the complete environment of a sandbox. Nothing is inherited
// from the coordinator process.
func sandboxEnv(jobDir string) []string {
	return []string{
		"PATH=" + sandboxPath,
		"HOME=" + jobDir,
		"TMPDIR=" + jobDir,
		"LANG=C.UTF-8",
		"PYTHONDONTWRITEBYTECODE=1",
	}
}

// track reports a started sandbox without blocking. It returns false when the
// report was not delivered.
func (e *Executor) track(p domain.Process) bool {
	if e.processes == nil {
		return false
	}
	select {
	case e.processes <- p:
		return true
	default:
		e.log.Debug("Sandbox process tracker full, pid not tracked", "pid", p.PID)
		return false
	}
}

// untrack tells the monitor a tracked sandbox has been reaped, so that its pid
// is never killed once reused.
func (e *Executor) untrack(ctx context.Context, p domain.Process) {
	timer := time.NewTimer(untrackTimeout)
	defer timer.Stop()
	select {
	case e.processes <- p:
	case <-ctx.Done():
	case <-timer.C:
		e.log.Warn("Sandbox exit not reported to the monitor", "pid", p.PID)
	}
}

func (e *Executor) observe(language domain.Language, r domain.ExecutionResult) domain.ExecutionResult {
	// unknown tags come from clients and must not become label values
	label := "unsupported"
	if _, ok := e.languages[language]; ok {
		label = string(language)
	}
	observability.Executions.WithLabelValues(label, string(r.Status)).Inc()
	if r.Duration > 0 {
		observability.ExecutionDuration.WithLabelValues(label).Observe(r.Duration.Seconds())
	}
	return r
}

func (e *Executor) cleanup(path string) {
	if err := os.RemoveAll(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		e.log.Warn("Sandbox cleanup failed", "path", path, "error", err)
	}
}
