// Package ctlpipe exposes a local control endpoint for a running service: a
// named pipe on Windows, a unix socket elsewhere.
//
// The protocol is one line per connection. The client writes a control name
// ("stop" or "interrogate"); the server answers "ok <state>" or
// "error <message>" and closes the connection.
package ctlpipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"tools.zach/dev/procsvc/internal/service"
)

// ioTimeout bounds a single request on either side.
const ioTimeout = 5 * time.Second

// StatusFunc returns the service's current status.
type StatusFunc func() service.Status

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Server accepts control requests and forwards them to a host.
type Server struct {
	ln       net.Listener
	controls chan<- service.Control
	status   StatusFunc
}

// NewServer returns a Server reading requests from ln.
func NewServer(ln net.Listener, controls chan<- service.Control, status StatusFunc) *Server {
	return &Server{ln: ln, controls: controls, status: status}
}

// Serve accepts connections until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		slog.Debug("control request unreadable", "error", err)
		return
	}
	reply := s.dispatch(strings.TrimSpace(line))
	if _, err := fmt.Fprintf(conn, "%s\n", reply); err != nil {
		slog.Debug("control reply failed", "error", err)
	}
}

// dispatch turns one request line into a reply line.
func (s *Server) dispatch(req string) string {
	c, err := service.ParseControl(req)
	if err != nil {
		return "error " + err.Error()
	}
	slog.Info("control request", "control", c)
	if c == service.ControlStop {
		select {
		case s.controls <- c:
		case <-time.After(ioTimeout):
			return "error host is not accepting controls"
		}
		// The host applies the control asynchronously, so its status may
		// still read running here.
		if st := s.status().State; st == service.StateStopped {
			return "ok " + st.String()
		}
		return "ok " + service.StateStopPending.String()
	}
	return "ok " + s.status().State.String()
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Send dials the endpoint of the named service, sends c and returns the
// server's reply with the "ok " prefix removed.
func Send(ctx context.Context, name string, c service.Control) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	conn, err := dial(ctx, name)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", Address(name), err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", c); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read reply: %w", err)
	}
	line = strings.TrimSpace(line)
	if msg, ok := strings.CutPrefix(line, "error "); ok {
		return "", errors.New(msg)
	}
	return strings.TrimPrefix(line, "ok "), nil
}
