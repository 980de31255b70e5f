// Package supervisor runs a single child process until it exits on its own or
// a stop is requested, and turns the outcome into a [Code].
//
// A run moves through these states:
//
//	Validating -> Launching -> Polling -> Exited | StoppedByRequest
//
// Validation and launch failures end the run before Polling is reached. A
// failed liveness poll keeps the loop in Polling with a pending
// [CodeChildProcessError]; only a natural exit or a stop request ends it.
package supervisor

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultPollInterval is the pause between liveness polls.
const DefaultPollInterval = 50 * time.Millisecond

// Signal is the consuming end of a stop notification.
type Signal interface {
	TryReceive() bool
}

// ///////////////////////////////////////////////
// Supervisor
// ///////////////////////////////////////////////

// Options configures a [Supervisor].
type Options struct {
	// PollInterval is the sleep between loop iterations. Zero polls
	// without pausing.
	PollInterval time.Duration
	// Allow lists doublestar patterns the resolved target must match. An
	// empty list allows any target.
	Allow []string
	// Spawner starts the child. Nil uses [ExecSpawner].
	Spawner Spawner
}

// Supervisor launches and watches one child per [Supervisor.Run] call.
type Supervisor struct {
	opts Options
}

// New returns a Supervisor for opts.
func New(opts Options) *Supervisor {
	if opts.Spawner == nil {
		opts.Spawner = ExecSpawner{}
	}
	return &Supervisor{opts: opts}
}

// Run validates args, launches args[1] and supervises it until it exits or
// stop is signalled. args[0] is the service name and is ignored.
func (s *Supervisor) Run(args []string, stop Signal) Code {
	target, err := s.prepare(args)
	if err != nil {
		code := CodeOf(err)
		slog.Error("supervision aborted", "error", err, "code", code)
		return code
	}

	proc, err := s.opts.Spawner.Spawn(target)
	if err != nil {
		slog.Error("failed to launch target", "target", target, "error", err)
		return CodeChildProcessError
	}
	slog.Info("target launched", "target", target, "pid", proc.Pid())

	return s.supervise(proc, stop)
}

// prepare covers the Validating state and returns the resolved target.
func (s *Supervisor) prepare(args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%w: got %d, need at least 2", ErrArgumentCount, len(args))
	}
	raw, err := decodeArg(args[1])
	if err != nil {
		return "", err
	}
	target, err := Resolve(raw)
	if err != nil {
		return "", err
	}
	ok, err := allowed(target, s.opts.Allow)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTargetNotAllowed, target, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTargetNotAllowed, target)
	}
	return target, nil
}

// supervise is the Polling state. Natural exit is checked before the stop
// signal, so a child that exits in the same iteration as a stop request
// reports its own code.
func (s *Supervisor) supervise(proc Process, stop Signal) Code {
	code := CodeSuccess
	for {
		st, err := proc.Poll()
		switch {
		case err != nil:
			slog.Warn("child liveness check failed", "pid", proc.Pid(), "error", err)
			code = CodeChildProcessError
		case st.Exited:
			if !st.Known {
				slog.Warn("child exited without an exit code", "pid", proc.Pid())
				return CodeUnknownError
			}
			code = Code(st.Code)
			slog.Info("child exited", "pid", proc.Pid(), "code", code)
			return code
		case stop.TryReceive():
			// The kill is not confirmed; the loop ends as soon as it is requested.
			if err := proc.Kill(); err != nil {
				slog.Debug("kill request failed", "pid", proc.Pid(), "error", err)
			}
			slog.Info("child stopped by request", "pid", proc.Pid())
			return CodeStopService
		}
		if s.opts.PollInterval > 0 {
			time.Sleep(s.opts.PollInterval)
		}
	}
}
