package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/core/secret"
	"github.com/gaspardpetit/obix/internal/config"
	"github.com/gaspardpetit/obix/sdk/client"
	"github.com/gaspardpetit/obix/sdk/metrics"
	"github.com/gaspardpetit/obix/sdk/result"
	"github.com/gaspardpetit/obix/sdk/transport"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

const usageText = `usage: obixctl [flags] <command> [args]

commands:
  lobby                          print the Lobby document
  about                          connect and print the server's obix:About summary
  read <href>                    read an object
  write <href> <kind> <value>    write a value; kind is bool, int, real, str, abstime, uri or xml
  invoke <href> [xml]            invoke an operation with an optional argument
  batch <op:href[=xml]>...       run read, write and invoke items in one obix:Batch
  signup <xml>                   register a device through the sign-up operation
  errors                         connect and print the error history

flags:
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("obixctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	var cfg config.ClientConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	cfg.BindFlags(fs)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "obixctl version=%s sha=%s date=%s\n\n%s", version, buildSHA, buildDate, usageText)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		_, _ = fmt.Fprintf(stdout, "obixctl version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return 0
	}
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(stderr, "load config %s: %v\n", cfg.ConfigFile, err)
			return 1
		}
		// flags win over the file
		_ = fs.Parse(args)
	}
	logx.Configure(cfg.LogLevel)

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr)
		defer stop()
	}

	logx.Log.Debug().
		Str("lobby", cfg.LobbyURL).
		Str("username", cfg.Username).
		Str("password", secret.Mask(cfg.Password)).
		Dur("timeout", cfg.Timeout).
		Msg("client configuration")

	errs := result.NewStack(cfg.ErrorCapacity)
	cl, err := client.New(client.Config{
		LobbyURL: cfg.LobbyURL,
		HTTP: transport.HTTPConfig{
			Timeout:            cfg.Timeout,
			Username:           cfg.Username,
			Password:           cfg.Password,
			UserAgent:          "obixctl/" + version,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		Errors:     errs,
		SignUpPath: cfg.SignUpPath,
	})
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	defer cl.Close()

	a := &app{client: cl, out: stdout, errOut: stderr}
	st, known := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	if !known {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return 2
	}
	if !st.OK() {
		a.printFailure(st)
		return 1
	}
	return 0
}

// serveMetrics exposes the obix collectors on addr until the returned
// function is called.
func serveMetrics(addr string) func() {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	metrics.SetBuildInfo("obixctl", version, buildSHA, buildDate)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logx.Log.Info().Str("addr", addr).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Log.Error().Err(err).Msg("metrics server error")
		}
	}()
	return func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			logx.Log.Error().Err(err).Msg("metrics server shutdown")
		}
	}
}
