//go:build windows

package supervisor

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// osProcess polls a child through its own process handle, opened with just
// enough access to wait on it and read the exit code.
type osProcess struct {
	p      *os.Process
	handle windows.Handle
}

func attach(p *os.Process) (Process, error) {
	h, err := windows.OpenProcess(
		windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION,
		false,
		uint32(p.Pid),
	)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", p.Pid, err)
	}
	return &osProcess{p: p, handle: h}, nil
}

func (o *osProcess) Pid() int { return o.p.Pid }

// Poll waits on the handle with a zero timeout. Every Windows exit status is
// numeric, so an exited child always reports a known code.
func (o *osProcess) Poll() (ExitStatus, error) {
	ev, err := windows.WaitForSingleObject(o.handle, 0)
	if err != nil {
		return ExitStatus{}, fmt.Errorf("wait on pid %d: %w", o.p.Pid, err)
	}
	switch ev {
	case uint32(windows.WAIT_TIMEOUT):
		return ExitStatus{}, nil
	case windows.WAIT_OBJECT_0:
		var code uint32
		if err := windows.GetExitCodeProcess(o.handle, &code); err != nil {
			return ExitStatus{}, fmt.Errorf("exit code of pid %d: %w", o.p.Pid, err)
		}
		o.close()
		return ExitStatus{Exited: true, Code: code, Known: true}, nil
	default:
		return ExitStatus{}, fmt.Errorf("wait on pid %d: unexpected result %#x", o.p.Pid, ev)
	}
}

// Kill calls TerminateProcess.
func (o *osProcess) Kill() error {
	err := o.p.Kill()
	o.close()
	return err
}

func (o *osProcess) close() {
	if o.handle != 0 {
		_ = windows.CloseHandle(o.handle)
		o.handle = 0
	}
	_ = o.p.Release()
}
