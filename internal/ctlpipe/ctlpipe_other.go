//go:build !windows

package ctlpipe

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

// Address returns the unix socket path for the service.
func Address(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

// Listen opens the service's control socket, replacing a stale one.
func Listen(name string) (net.Listener, error) {
	path := Address(name)
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

func dial(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", Address(name))
}
