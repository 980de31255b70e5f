//go:build windows

package ctlpipe

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSDDL grants full access to LocalSystem and the built-in
// Administrators group only.
const pipeSDDL = "D:P(A;;GA;;;SY)(A;;GA;;;BA)"

// Address returns the named pipe path for the service.
func Address(name string) string {
	return `\\.\pipe\` + name
}

// Listen opens the service's control pipe.
func Listen(name string) (net.Listener, error) {
	return winio.ListenPipe(Address(name), &winio.PipeConfig{
		SecurityDescriptor: pipeSDDL,
	})
}

func dial(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, Address(name))
}
