// Package main implements procsvc, a service wrapper that launches one target
// executable, supervises it until it exits or the service is stopped, and
// exits with a result code describing the outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	rootpkg "tools.zach/dev/procsvc"
	"tools.zach/dev/procsvc/internal/atomicfile"
	"tools.zach/dev/procsvc/internal/config"
	"tools.zach/dev/procsvc/internal/ctlpipe"
	"tools.zach/dev/procsvc/internal/logger"
	"tools.zach/dev/procsvc/internal/paths"
	"tools.zach/dev/procsvc/internal/service"
	"tools.zach/dev/procsvc/internal/supervisor"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags (-X main.version=0.1.0).
// Without ldflags, resolveVersion falls back to the VCS info Go embeds.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Setup
// ///////////////////////////////////////////////

// exitFatal is the process status for start-up failures that happen before
// a result code can be produced.
const exitFatal = 1

// writeDefaultConfig seeds the data directory with the embedded default
// config unless a config file already exists.
func writeDefaultConfig(dir paths.DataDir) error {
	_, err := atomicfile.WriteNew(dir.Config(), rootpkg.DefaultConfigTOML, 0o644)
	return err
}

// serveControl opens the control endpoint for name and serves it until ctx
// is done. Failure to open the endpoint is logged and otherwise ignored.
func serveControl(ctx context.Context, name string, host *service.Host) {
	ln, err := ctlpipe.Listen(name)
	if err != nil {
		slog.Warn("control endpoint unavailable", "address", ctlpipe.Address(name), "error", err)
		return
	}
	slog.Info("control endpoint listening", "address", ctlpipe.Address(name))
	srv := ctlpipe.NewServer(ln, host.Controls(), host.Status)
	go func() {
		if err := srv.Serve(ctx); err != nil {
			slog.Warn("control endpoint stopped", "error", err)
		}
	}()
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the body of main. It returns the process exit status: the result
// code of the supervised run, or exitFatal if start-up failed. Unparseable
// flags count as bad arguments.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(paths.BinaryName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data-dir", paths.DefaultDataDir(), "Data directory for config and logs")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return int(supervisor.CodeArgumentCountError)
	}

	dir := paths.DataDir{Root: *dataDir}
	if err := os.MkdirAll(dir.Root, 0o755); err != nil {
		fmt.Fprintf(stderr, "fatal: create data dir: %v\n", err)
		return exitFatal
	}
	if err := writeDefaultConfig(dir); err != nil {
		fmt.Fprintf(stderr, "warning: failed to write default config: %v\n", err)
	}
	added, err := config.Normalize(dir.Root)
	if err != nil {
		fmt.Fprintf(stderr, "fatal: load config: %v\n", err)
		return exitFatal
	}

	cfg, err := config.Load(dir.Root)
	if err != nil {
		fmt.Fprintf(stderr, "fatal: load config: %v\n", err)
		return exitFatal
	}

	var level slog.LevelVar
	level.Set(logger.ParseLevel(cfg.Log.Level))
	var console io.Writer
	if service.Interactive() {
		console = stderr
	}
	log, logCloser := logger.NewLogger(dir.Log(), &level, cfg.Log.MaxSizeMB, console)
	defer logCloser.Close()
	slog.SetDefault(log)

	name := service.NewName(cfg.Service.NamePrefix)
	fmt.Fprintln(stdout, name)
	slog.Info("procsvc starting", "version", resolveVersion(), "service", name, "data_dir", dir.Root)
	if len(added) > 0 {
		slog.Info("config rewritten with missing keys", "keys", added)
	}

	if cfg.Log.Watch {
		w, err := config.Watch(dir.Config(), func(c *config.Config) {
			level.Set(logger.ParseLevel(c.Log.Level))
			slog.Info("log level updated", "level", level.Level())
		})
		if err != nil {
			slog.Warn("config watch unavailable", "error", err)
		} else {
			defer w.Close()
		}
	}

	sup := supervisor.New(supervisor.Options{
		PollInterval: cfg.PollInterval(),
		Allow:        cfg.Supervisor.Allow,
	})
	host := service.NewHost(sup)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Control.Pipe {
		serveControl(ctx, name, host)
	}

	code, err := service.Run(name, host, fs.Args())
	if err != nil {
		slog.Error("service run failed", "service", name, "error", err)
	}
	slog.Info("procsvc exiting", "service", name, "code", uint32(code), "result", code)
	return int(code)
}
