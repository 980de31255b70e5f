//go:build windows

package service

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/debug"

	"tools.zach/dev/procsvc/internal/supervisor"
)

// windowsService adapts a [Host] to [svc.Handler].
type windowsService struct {
	name  string
	host  *Host
	extra []string
	code  supervisor.Code
}

// Execute is called by the service control dispatcher. Returning errno with
// ssec false makes the manager record the result code as the service's
// Win32 exit code.
func (s *windowsService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	controls := make(chan Control)
	quit := make(chan struct{})
	defer close(quit)

	rep := &scmReporter{changes: changes}
	go func() {
		for {
			select {
			case c := <-r:
				select {
				case controls <- fromCmd(c.Cmd):
				case <-quit:
					return
				}
			case <-quit:
				return
			}
		}
	}()

	s.code = s.host.Execute(launchArgs(s.name, args, s.extra), controls, rep)
	return false, uint32(s.code)
}

// fromCmd maps manager commands onto the controls the host understands.
func fromCmd(c svc.Cmd) Control {
	switch c {
	case svc.Interrogate:
		return ControlInterrogate
	case svc.Stop:
		return ControlStop
	default:
		return ControlUnsupported
	}
}

// ///////////////////////////////////////////////
// SCM Reporter
// ///////////////////////////////////////////////

// scmReporter translates [Status] records into [svc.Status]. The stopped
// status itself is sent by the dispatcher once Execute returns.
type scmReporter struct {
	changes chan<- svc.Status

	mu      sync.Mutex
	current svc.Status
}

func (r *scmReporter) Report(s Status) {
	var st svc.Status
	switch s.State {
	case StateRunning:
		st = svc.Status{State: svc.Running, Accepts: svc.AcceptStop}
	case StateStopPending:
		st = svc.Status{State: svc.StopPending}
	default:
		return
	}
	r.mu.Lock()
	r.current = st
	r.mu.Unlock()
	r.changes <- st
}

func (r *scmReporter) Interrogate() {
	r.mu.Lock()
	st := r.current
	r.mu.Unlock()
	r.changes <- st
}

// ///////////////////////////////////////////////
// Dispatch
// ///////////////////////////////////////////////

// Interactive reports whether the process was started from a console rather
// than by the service control manager.
func Interactive() bool {
	isService, err := svc.IsWindowsService()
	return err == nil && !isService
}

func run(name string, h *Host, extra []string) (supervisor.Code, error) {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return supervisor.CodeUnknownError, fmt.Errorf("detect service mode: %w", err)
	}

	s := &windowsService{name: name, host: h, extra: extra}
	if !isService {
		slog.Info("not started by the service manager, running in console mode", "service", name)
		// debug.Run reports a non-zero exit as an error; the code is kept
		// on the handler instead.
		_ = debug.Run(name, s)
		return s.code, nil
	}

	if err := svc.Run(name, s); err != nil {
		return s.code, fmt.Errorf("run service %s: %w", name, err)
	}
	return s.code, nil
}
