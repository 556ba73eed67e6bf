//go:build !linux

package sandbox

import (
	"errors"
	"os"
	"os/exec"
)

// setPlatformSpecificAttrs has nothing to add outside Linux.
// Pdeathsig and process groups are unavailable, so termination relies on
// the default Cancel of exec.CommandContext (Process.Kill).
func setPlatformSpecificAttrs(*exec.Cmd) {}

// KillGroup kills pid alone: there is no process group to reach outside Linux.
func KillGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
