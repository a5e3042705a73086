//go:build !windows

package executor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func shellCommand(line string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", line)
}

// setupProcessGroup runs the command in its own process group so that
// terminate reaches the tools the shell spawned.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminate sends SIGTERM to the command's process group. A command sharing
// simon's group only gets the signal itself.
func terminate(cmd *exec.Cmd) error {
	if cmd.SysProcAttr != nil && cmd.SysProcAttr.Setpgid {
		pid := cmd.Process.Pid
		if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 && pgid != syscall.Getpgrp() {
			if err := syscall.Kill(-pgid, syscall.SIGTERM); err == nil {
				return nil
			}
		}
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
