package main

import (
	"flag"
	"io"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/config"
)

type options struct {
	config.Config
	Out  string
	Hold bool
}

// parseOptions layers command line flags over the environment.
func parseOptions(args []string, stderr io.Writer) (options, error) {
	o := options{Config: config.FromEnv(), Out: "-"}

	fs := flag.NewFlagSet("ets-features", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.IUT, "iut", o.IUT, "landing page URI of the service under test")
	fs.StringVar(&o.APIDescription, "api", o.APIDescription, "API description URL or file, overriding discovery")
	fs.IntVar(&o.MaxCollections, "max-collections", o.MaxCollections, "collections probed per group (<=0 probes all)")
	fs.DurationVar(&o.ProbeTimeout, "timeout", o.ProbeTimeout, "per request timeout")
	fs.StringVar(&o.Addr, "addr", o.Addr, "ops HTTP listen address; empty disables the ops server")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level: debug|info|warn|error")
	fs.BoolVar(&o.LogConsole, "log-console", o.LogConsole, "human readable log output")
	fs.StringVar(&o.Out, "out", o.Out, "report file; - writes to stdout")
	fs.BoolVar(&o.Hold, "hold", false, "keep the ops server running after the run until interrupted")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}
