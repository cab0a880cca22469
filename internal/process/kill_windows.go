//go:build windows

package process

import "os/exec"

// SetGroup is a no-op on Windows; exec kills the direct child only.
func SetGroup(cmd *exec.Cmd) {}

// KillGroup is a no-op on Windows. Process groups work differently here;
// the compiler does not fork helpers, so killing the direct child suffices.
func KillGroup(pid int) {}
