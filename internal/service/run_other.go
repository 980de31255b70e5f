//go:build !windows

package service

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tools.zach/dev/procsvc/internal/supervisor"
)

// Interactive reports whether the process has a console to write to. Outside
// Windows the process always runs in the foreground.
func Interactive() bool { return true }

// run hosts h in the foreground. SIGINT and SIGTERM, the signals process
// managers such as systemd and launchd send, become [ControlStop].
func run(name string, h *Host, extra []string) (supervisor.Code, error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	controls := make(chan Control)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			select {
			case s := <-sig:
				slog.Info("received signal", "signal", s)
				select {
				case controls <- ControlStop:
				case <-quit:
					return
				}
			case <-quit:
				return
			}
		}
	}()

	return h.Execute(launchArgs(name, nil, extra), controls, logReporter{h: h}), nil
}
