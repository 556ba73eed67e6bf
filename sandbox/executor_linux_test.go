//go:build linux

package sandbox

import (
	"bytes"
	"collab-lab/domain"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// processGone is true once pid has exited, zombies included.
func processGone(pid int) bool {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return false
	}
	state := stat[i+2]
	return state == 'Z' || state == 'X'
}

func TestExecutor_Children_Do_Not_Outlive_The_Run(t *testing.T) {
	requireBinary(t, "python3")
	requireBinary(t, "sleep")
	req := require.New(t)
	e, _ := newCountingExecutor(t, testConfig(t), nil)

	// Given a snippet leaving a detached child behind
	res := e.Execute(context.Background(), domain.ExecutionRequest{
		Language: domain.Python,
		Source: "import subprocess\n" +
			"p = subprocess.Popen(['sleep', '30'], stdout=subprocess.DEVNULL, stderr=subprocess.DEVNULL)\n" +
			"print(p.pid)",
	})

	// Then the run succeeds
	req.Equal(domain.StatusSuccess, res.Status, res.Output)
	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	req.NoError(err)

	// And the child died with it
	req.Eventually(func() bool { return processGone(pid) }, 2*time.Second, 20*time.Millisecond)
}

func TestExecutor_Child_Holding_Stdout_Does_Not_Fail_The_Run(t *testing.T) {
	requireBinary(t, "python3")
	requireBinary(t, "sleep")
	req := require.New(t)
	e, _ := newCountingExecutor(t, testConfig(t), nil)

	// Given a snippet whose child inherits stdout and keeps it open
	res := e.Execute(context.Background(), domain.ExecutionRequest{
		Language: domain.Python,
		Source: "import subprocess\n" +
			"p = subprocess.Popen(['sleep', '30'])\n" +
			"print(p.pid, flush=True)",
	})

	// Then the clean exit is still a success
	req.Equal(domain.StatusSuccess, res.Status, res.Output)
	req.Equal(0, res.ExitCode)
	req.False(res.TimedOut)
	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	req.NoError(err)

	// And the child is gone
	req.Eventually(func() bool { return processGone(pid) }, 2*time.Second, 20*time.Millisecond)
}
