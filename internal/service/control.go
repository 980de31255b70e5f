// Package service hosts the [supervisor.Supervisor] under the operating
// system's service manager: it generates the service name, translates
// manager control events into the shutdown channel, and reports status
// transitions ending in the run's exit code.
package service

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"tools.zach/dev/procsvc/internal/supervisor"
)

// DefaultNamePrefix prefixes generated service names.
const DefaultNamePrefix = "sombra-windows-service-"

// NewName returns prefix followed by a random unsigned 64-bit number. It is
// called once per process and the result passed to whatever needs it.
func NewName(prefix string) string {
	return prefix + strconv.FormatUint(rand.Uint64(), 10)
}

// ///////////////////////////////////////////////
// Controls
// ///////////////////////////////////////////////

// Control is a manager-issued control event.
type Control int

const (
	// ControlUnsupported stands for every event the service does not handle.
	ControlUnsupported Control = iota
	ControlInterrogate
	ControlStop
)

func (c Control) String() string {
	switch c {
	case ControlInterrogate:
		return "interrogate"
	case ControlStop:
		return "stop"
	default:
		return "unsupported"
	}
}

// ParseControl maps a control name back to a Control.
func ParseControl(s string) (Control, error) {
	switch s {
	case "interrogate":
		return ControlInterrogate, nil
	case "stop":
		return ControlStop, nil
	default:
		return ControlUnsupported, fmt.Errorf("unknown control %q", s)
	}
}

// Response is the handler's answer to a Control.
type Response int

const (
	ResponseNoError Response = iota
	ResponseNotImplemented
)

// ///////////////////////////////////////////////
// Status
// ///////////////////////////////////////////////

// State is the service state reported to the manager.
type State int

const (
	StateRunning State = iota + 1
	StateStopPending
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopPending:
		return "stop-pending"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is one status record sent to the manager.
type Status struct {
	State State
	// AcceptsStop advertises that the service handles [ControlStop].
	AcceptsStop bool
	// ExitCode is set on [StateStopped] and equals the run's result.
	ExitCode supervisor.Code
}

// Reporter delivers status records to the service manager.
type Reporter interface {
	Report(Status)
	// Interrogate re-sends the current status without changing it.
	Interrogate()
}
