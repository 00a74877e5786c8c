//go:build windows

package runner

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// terminate kills the whole process tree.
func terminate(p *os.Process) error {
	err := exec.Command("taskkill", "/pid", strconv.Itoa(p.Pid), "/f", "/t").Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 128 {
		// process not found: it already exited
		return nil
	}
	return err
}

func forceKill(p *os.Process) error {
	err := p.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
