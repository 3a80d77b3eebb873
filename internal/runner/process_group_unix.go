//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the command in its own process group so a kill
// reaches the entire tree, not just the shell. A pipeline or a backgrounded
// child would otherwise survive the shell and keep the output pipes open.
func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func processGroupID(cmd *exec.Cmd) int {
	if cmd == nil || cmd.Process == nil {
		return 0
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return 0
	}
	return pgid
}

// killProcessGroup signals the whole group, falling back to the direct
// process when the group id is unavailable.
func killProcessGroup(cmd *exec.Cmd, pgid int) {
	if pgid > 0 {
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err == nil {
			return
		}
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
