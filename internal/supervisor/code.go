package supervisor

import (
	"errors"
	"strconv"
)

// ///////////////////////////////////////////////
// Result Codes
// ///////////////////////////////////////////////

// Code is the outcome of one supervision run. It is either one of the
// constants below or the child's own exit code, and is reported unchanged as
// the service's exit status.
type Code uint32

const (
	CodeSuccess             Code = 0
	CodeStopService         Code = 1
	CodeChildProcessError   Code = 2
	CodeUnknownError        Code = 3
	CodeTargetNotFound      Code = 4
	CodeArgumentDecodeError Code = 5
	CodeArgumentCountError  Code = 6
)

// String returns the constant's name for the fixed codes and the decimal
// value otherwise.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeStopService:
		return "stop-service"
	case CodeChildProcessError:
		return "child-process-error"
	case CodeUnknownError:
		return "unknown-error"
	case CodeTargetNotFound:
		return "target-not-found"
	case CodeArgumentDecodeError:
		return "argument-decode-error"
	case CodeArgumentCountError:
		return "argument-count-error"
	default:
		return strconv.FormatUint(uint64(c), 10)
	}
}

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

var (
	ErrArgumentCount    = errors.New("not enough launch arguments")
	ErrArgumentDecode   = errors.New("launch argument is not valid text")
	ErrTargetNotFound   = errors.New("target executable not found")
	ErrTargetNotAllowed = errors.New("target executable not allowed")
	ErrChildProcess     = errors.New("child process error")
)

// CodeOf maps an error returned while preparing or launching a run to its
// Code. Errors outside the sentinel set map to [CodeUnknownError].
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrArgumentCount):
		return CodeArgumentCountError
	case errors.Is(err, ErrArgumentDecode):
		return CodeArgumentDecodeError
	case errors.Is(err, ErrTargetNotFound), errors.Is(err, ErrTargetNotAllowed):
		return CodeTargetNotFound
	case errors.Is(err, ErrChildProcess):
		return CodeChildProcessError
	default:
		return CodeUnknownError
	}
}
