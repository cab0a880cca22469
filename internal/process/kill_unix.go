//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// SetGroup configures cmd to start in its own process group so the whole
// group can be killed on timeout.
func SetGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// KillGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillGroup(pid int) {
	// Best-effort cleanup; exec's own Process.Kill provides fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
