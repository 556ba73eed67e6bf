//go:build linux

package sandbox

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setPlatformSpecificAttrs puts the sandbox in its own process group and ties it to our lifetime.
// Pdeathsig kills the child if the coordinator dies. Cancel kills the whole group so
// grandchildren spawned by the snippet do not outlive the timeout.
func setPlatformSpecificAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}

// KillGroup SIGKILLs every process of the group led by pid.
// A group with no process left is not an error.
func KillGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
