package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/cache/redisstore"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/executor"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/health"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/httpclient"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/observability"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/server"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/fixture"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/logger"
	h3mapper "github.com/mohammed-shakir/ogcapi-features-ets/internal/mapper/h3"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/metrics"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/suite"
	"github.com/mohammed-shakir/ogcapi-features-ets/internal/verdictevents"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

// exit codes
const (
	exitPass  = 0
	exitFail  = 1
	exitError = 2
)

var errFixturePending = errors.New("fixture not prepared")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return exitError
	}

	zl := logger.Build(logger.Config{
		Level:     opts.LogLevel,
		Console:   opts.LogConsole,
		Component: "ets-features",
	}, stderr)
	appLog := logger.NewSlog(&zl)

	if opts.IUT == "" {
		appLog.Error("no service under test; set -iut or ETS_IUT")
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRunID(ctx, "")

	p := metrics.Init(metrics.Config{Build: metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate}})
	observability.Init(p.Registerer())

	appLog.InfoContext(ctx, "starting run",
		"iut", opts.IUT,
		"version", Version,
		"max_collections", opts.MaxCollections,
		"fixture_cache", opts.FixtureCache.Enabled,
		"events", opts.Events.Enabled)

	prober := executor.New(appLog, httpclient.NewOutbound(opts.ProbeTimeout), executor.WithDocMemo(opts.DocCacheSize))
	fxDeps := fixture.Deps{
		Logger:          appLog,
		Prober:          prober,
		APIDescription:  opts.APIDescription,
		SnapshotTTL:     opts.FixtureCache.TTL,
		SnapshotTimeout: opts.FixtureCache.OpTimeout,
	}

	var checks health.Checks
	prepared := health.NewFlag(errFixturePending)
	checks.Add("fixture", prepared.Check)

	if opts.FixtureCache.Enabled {
		store, err := redisstore.New(ctx, opts.FixtureCache.RedisAddr)
		if err != nil {
			// the snapshot store only saves work; run without it
			appLog.WarnContext(ctx, "fixture cache unavailable", "addr", opts.FixtureCache.RedisAddr, "err", err)
		} else {
			defer func() { _ = store.Close() }()
			fxDeps.Snapshots = store
			checks.Add("redis", store.Ping)
		}
	}

	sdeps := suite.Deps{Logger: appLog, Prober: prober}
	if m, err := h3mapper.New(opts.BBoxH3Res); err != nil {
		appLog.WarnContext(ctx, "bbox probes disabled", "err", err)
	} else {
		sdeps.Mapper = m
	}
	if opts.Events.Enabled {
		pub, err := verdictevents.NewPublisher(appLog, opts.Events.BrokerList(), opts.Events.Topic, 0)
		if err != nil {
			appLog.ErrorContext(ctx, "verdict events unavailable", "err", err)
			return exitError
		}
		defer func() { _ = pub.Close() }()
		sdeps.Events = pub
	}

	var latest server.LatestReport
	opsDone := make(chan struct{})
	opsCtx, stopOps := context.WithCancel(ctx)
	defer func() {
		stopOps()
		<-opsDone
	}()
	if opts.Addr != "" {
		go func() {
			defer close(opsDone)
			h := server.Handlers{Metrics: p.Handler(), Ready: &checks, Report: &latest}
			if err := server.Run(opsCtx, opts.Addr, appLog, h); err != nil {
				appLog.ErrorContext(ctx, "ops server exited", "err", err)
			}
		}()
	} else {
		close(opsDone)
	}

	fx, err := fixture.Prepare(ctx, fxDeps, opts.IUT)
	if err != nil {
		appLog.ErrorContext(ctx, "cannot prepare fixture", "err", err)
		return exitError
	}
	prepared.Set()

	rep, err := suite.New(suite.Config{MaxCollections: opts.MaxCollections}, sdeps, fx).Run(ctx)
	if err != nil {
		appLog.ErrorContext(ctx, "run aborted", "err", err)
		return exitError
	}
	p.RecordRun(rep.Summary, float64(rep.Finished.UnixNano())/float64(time.Second))

	body, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		appLog.ErrorContext(ctx, "encode report", "err", err)
		return exitError
	}
	latest.Set(body)
	if err := writeReport(opts.Out, stdout, body); err != nil {
		appLog.ErrorContext(ctx, "write report", "err", err)
		return exitError
	}

	appLog.InfoContext(ctx, "run finished",
		"passed", rep.Summary.Passed,
		"failed", rep.Summary.Failed,
		"skipped", rep.Summary.Skipped,
		"from_snapshot", fx.FromSnapshot())

	if opts.Hold && opts.Addr != "" {
		appLog.InfoContext(ctx, "holding ops server until interrupted", "addr", opts.Addr)
		<-ctx.Done()
	}
	if rep.Summary.Failed > 0 {
		return exitFail
	}
	return exitPass
}

func writeReport(path string, stdout io.Writer, body []byte) error {
	body = append(body, '\n')
	if path == "" || path == "-" {
		_, err := stdout.Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
