package service

import (
	"log/slog"
	"sync"

	"tools.zach/dev/procsvc/internal/shutdown"
	"tools.zach/dev/procsvc/internal/supervisor"
)

// Runner performs one supervision run.
type Runner interface {
	Run(args []string, stop supervisor.Signal) supervisor.Code
}

// ///////////////////////////////////////////////
// Host
// ///////////////////////////////////////////////

// Host connects a [Runner] to a service manager. One Host serves one run.
type Host struct {
	runner Runner
	// extra receives controls from sources other than the manager, such as
	// the control endpoint.
	extra chan Control

	mu     sync.Mutex
	status Status
}

// NewHost returns a Host for r.
func NewHost(r Runner) *Host {
	return &Host{runner: r, extra: make(chan Control, 1)}
}

// Controls returns the channel through which out-of-band sources deliver
// controls to the running host.
func (h *Host) Controls() chan<- Control {
	return h.extra
}

// Status returns the last status reported.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Execute reports the service as running, supervises args and dispatches
// controls until the run ends. The returned code is the one reported with
// [StateStopped], untransformed.
func (h *Host) Execute(args []string, controls <-chan Control, rep Reporter) supervisor.Code {
	tx, rx := shutdown.New()
	h.report(rep, Status{State: StateRunning, AcceptsStop: true})

	done := make(chan supervisor.Code, 1)
	go func() { done <- h.runner.Run(args, rx) }()

	for {
		select {
		case code := <-done:
			h.report(rep, Status{State: StateStopped, AcceptsStop: true, ExitCode: code})
			return code
		case c := <-controls:
			h.Handle(c, tx, rep)
		case c := <-h.extra:
			h.Handle(c, tx, rep)
		}
	}
}

// Handle applies one control. Interrogate re-sends the current status,
// Stop signals the supervisor, anything else is not implemented.
func (h *Host) Handle(c Control, tx shutdown.Sender, rep Reporter) Response {
	switch c {
	case ControlInterrogate:
		rep.Interrogate()
		return ResponseNoError
	case ControlStop:
		if tx.Send() {
			slog.Info("stop requested")
			h.report(rep, Status{State: StateStopPending})
		}
		return ResponseNoError
	default:
		slog.Debug("control not implemented", "control", c)
		return ResponseNotImplemented
	}
}

func (h *Host) report(rep Reporter, s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
	rep.Report(s)
}
