package supervisor

import (
	"fmt"
	"os"
	"os/exec"
)

// ///////////////////////////////////////////////
// Process
// ///////////////////////////////////////////////

// ExitStatus is the result of one liveness poll.
type ExitStatus struct {
	// Exited is true once the child has terminated.
	Exited bool
	// Code is the child's exit code; meaningful only when Known is true.
	Code uint32
	// Known is false when the child terminated without a numeric exit
	// code, e.g. killed by a signal.
	Known bool
}

// Process is a live child owned by the supervisor loop.
type Process interface {
	// Pid returns the OS process id.
	Pid() int
	// Poll checks, without blocking, whether the child has exited.
	Poll() (ExitStatus, error)
	// Kill requests termination of the child. It does not wait for it.
	Kill() error
}

// Spawner starts the target executable.
type Spawner interface {
	Spawn(path string) (Process, error)
}

// ///////////////////////////////////////////////
// ExecSpawner
// ///////////////////////////////////////////////

// ExecSpawner starts children with [os/exec]: no arguments, the inherited
// environment, and the supervisor's own standard output and error.
type ExecSpawner struct{}

// Spawn starts path and attaches a platform liveness poller to it.
func (ExecSpawner) Spawn(path string) (Process, error) {
	cmd := exec.Command(path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", ErrChildProcess, path, err)
	}
	p, err := attach(cmd.Process)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("%w: attach to pid %d: %w", ErrChildProcess, cmd.Process.Pid, err)
	}
	return p, nil
}
