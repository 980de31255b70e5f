// Package main implements procsvcctl, which sends a control to a running
// procsvc instance through its control endpoint.
//
// Usage:
//
//	procsvcctl -name sombra-windows-service-123 stop
//	procsvcctl -name sombra-windows-service-123 interrogate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"tools.zach/dev/procsvc/internal/ctlpipe"
	"tools.zach/dev/procsvc/internal/service"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, sends the control and prints the reported state.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("procsvcctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "Service name printed by procsvc at startup")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: procsvcctl -name <service> stop|interrogate\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *name == "" || fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	c, err := service.ParseControl(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	state, err := ctlpipe.Send(ctx, *name, c)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, state)
	return 0
}
