package service

import (
	"log/slog"

	"tools.zach/dev/procsvc/internal/supervisor"
)

// Run hosts h under the platform's service manager as service name and
// returns the run's result code. extra is appended to the arguments the
// manager passes, so a target may come from the start parameters or from
// the service's command line.
func Run(name string, h *Host, extra []string) (supervisor.Code, error) {
	return run(name, h, extra)
}

// launchArgs builds the child's launch arguments: the manager's arguments (the
// first of which is the service name) followed by extra.
func launchArgs(name string, managerArgs, extra []string) []string {
	if len(managerArgs) == 0 {
		managerArgs = []string{name}
	}
	args := make([]string, 0, len(managerArgs)+len(extra))
	args = append(args, managerArgs...)
	return append(args, extra...)
}

// ///////////////////////////////////////////////
// Log Reporter
// ///////////////////////////////////////////////

// logReporter reports status transitions to the log only. It is used when
// no service manager is attached.
type logReporter struct {
	h *Host
}

func (r logReporter) Report(s Status) {
	slog.Info("service status", "state", s.State, "exit_code", uint32(s.ExitCode))
}

func (r logReporter) Interrogate() {
	r.Report(r.h.Status())
}
