//go:build windows

package runner

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {
	// Process groups work differently on Windows; the command is left as is.
	_ = cmd
}

func processGroupID(cmd *exec.Cmd) int {
	return 0
}

func killProcessGroup(cmd *exec.Cmd, pgid int) {
	_ = pgid
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
