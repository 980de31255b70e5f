//go:build unix

package supervisor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// osProcess polls a child with wait4(2) and WNOHANG.
type osProcess struct {
	p *os.Process
}

func attach(p *os.Process) (Process, error) {
	return &osProcess{p: p}, nil
}

func (o *osProcess) Pid() int { return o.p.Pid }

// Poll reaps the child if it has exited. A child terminated by a signal has
// no exit code.
func (o *osProcess) Poll() (ExitStatus, error) {
	var ws unix.WaitStatus
	pid, err := unix.Wait4(o.p.Pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return ExitStatus{}, fmt.Errorf("wait4 pid %d: %w", o.p.Pid, err)
	}
	if pid == 0 {
		return ExitStatus{}, nil
	}
	if ws.Exited() {
		return ExitStatus{Exited: true, Code: uint32(ws.ExitStatus()), Known: true}, nil
	}
	return ExitStatus{Exited: true}, nil
}

// Kill sends SIGKILL.
func (o *osProcess) Kill() error {
	return o.p.Kill()
}
