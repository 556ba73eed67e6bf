package workers

import (
	"collab-lab/domain"
	"collab-lab/observability"
	"collab-lab/sandbox"
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/process"
)

// SandboxMonitor samples the sandbox processes reported by the executor.
// It keeps the running gauge accurate, logs CPU and RAM usage, and kills the
// process group of any sandbox still alive well past its execution timeout.
// A pid is forgotten as soon as the executor reports it reaped.
type SandboxMonitor struct {
	log            *slog.Logger
	processes      <-chan domain.Process
	metricInterval time.Duration
	staleAfter     time.Duration
	tracked        map[domain.PID]domain.Process
	now            func() time.Time
}

func NewSandboxMonitor(
	log *slog.Logger,
	processes <-chan domain.Process,
	metricInterval time.Duration,
	staleAfter time.Duration,
) *SandboxMonitor {
	return &SandboxMonitor{
		log:            log,
		processes:      processes,
		metricInterval: metricInterval,
		staleAfter:     staleAfter,
		tracked:        make(map[domain.PID]domain.Process),
		now:            time.Now,
	}
}

func (w *SandboxMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping sandbox monitoring")
			return nil
		case proc := <-w.processes:
			if proc.Exited {
				delete(w.tracked, proc.PID)
			} else {
				w.tracked[proc.PID] = proc
			}
			observability.RunningSandboxes.Set(float64(len(w.tracked)))
		case <-ticker.C:
			w.sample()
		}
	}
}

// sample forgets exited sandboxes and reports the live ones.
func (w *SandboxMonitor) sample() {
	for pid, proc := range w.tracked {
		alive, err := process.PidExists(int32(pid))
		if err != nil || !alive {
			delete(w.tracked, pid)
			continue
		}
		p, err := process.NewProcess(int32(pid))
		if err != nil {
			delete(w.tracked, pid)
			continue
		}

		age := w.now().Sub(proc.StartedAt)
		if age > w.staleAfter && w.isSameProcess(p, proc) {
			w.log.Warn("Sandbox outlived its timeout, killing it",
				"pid", pid,
				"language", proc.Language,
				"age", age)
			if err := sandbox.KillGroup(int(pid)); err != nil {
				w.log.Error("Failed to kill stale sandbox", "pid", pid, "error", err)
			}
			continue
		}

		cpu, err := p.CPUPercent()
		if err != nil {
			w.log.Debug("Error while finding sandbox cpu usage", "pid", pid, "error", err)
			continue
		}
		ram, err := p.MemoryPercent()
		if err != nil {
			w.log.Debug("Error while finding sandbox ram usage", "pid", pid, "error", err)
			continue
		}
		w.log.Debug("Sandbox usage",
			"pid", pid,
			"language", proc.Language,
			"cpu_percent", cpu,
			"ram_percent", ram,
			"age", age)
	}
	observability.RunningSandboxes.Set(float64(len(w.tracked)))
}

// isSameProcess guards against pid reuse when the exit report was lost: the
// process must have been created around the time the executor reported it.
func (w *SandboxMonitor) isSameProcess(p *process.Process, proc domain.Process) bool {
	createdMs, err := p.CreateTime()
	if err != nil {
		return false
	}
	created := time.UnixMilli(createdMs)
	diff := created.Sub(proc.StartedAt)
	if diff < 0 {
		diff = -diff
	}
	return diff < 2*time.Second
}
