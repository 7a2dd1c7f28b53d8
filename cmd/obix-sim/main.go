package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/core/secret"
	"github.com/gaspardpetit/obix/internal/config"
	"github.com/gaspardpetit/obix/internal/obixsim"
	"github.com/gaspardpetit/obix/sdk/metrics"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.SimConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "obix-sim version=%s sha=%s date=%s\n\n", version, buildSHA, buildDate)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Printf("obix-sim version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
		// flags win over the file
		_ = flag.CommandLine.Parse(os.Args[1:])
	}
	logx.Configure(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := obixsim.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rs, err := obixsim.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			logx.Log.Fatal().Err(err).Str("addr", secret.MaskURL(cfg.RedisAddr)).Msg("connect redis")
		}
		store = rs
		logx.Log.Info().Str("addr", secret.MaskURL(cfg.RedisAddr)).Msg("using redis point store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)
	metrics.SetBuildInfo("obix-sim", version, buildSHA, buildDate)

	listen := fmt.Sprintf(":%d", cfg.Port)
	sharedMetrics := cfg.MetricsAddr == listen
	opts := obixsim.Options{
		Prefix:         cfg.Prefix,
		AllowedOrigins: cfg.AllowedOrigins,
		DisableAbout:   cfg.DisableAbout,
		DisableWatch:   cfg.DisableWatch,
		DisableBatch:   cfg.DisableBatch,
		Store:          store,
		ServerName:     cfg.ServerName,
		ProductVersion: version,
	}
	if sharedMetrics {
		opts.Registry = reg
	}
	sim := obixsim.New(opts)

	if cfg.SeedFile != "" {
		seeds, err := obixsim.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			logx.Log.Fatal().Err(err).Str("path", cfg.SeedFile).Msg("load seed file")
		}
		if err := sim.Seed(ctx, seeds); err != nil {
			logx.Log.Fatal().Err(err).Msg("seed points")
		}
		logx.Log.Info().Int("points", len(seeds)).Str("path", cfg.SeedFile).Msg("seeded points")
	}

	srv := &http.Server{Addr: listen, Handler: sim.Handler(), ReadHeaderTimeout: 10 * time.Second}
	var metricsSrv *http.Server
	if !sharedMetrics && cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}

	go func() {
		<-ctx.Done()
		logx.Log.Warn().Msg("termination requested")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logx.Log.Error().Err(err).Msg("metrics server shutdown")
			}
		}
	}()

	if metricsSrv != nil {
		go func() {
			logx.Log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server starting")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}
	logx.Log.Info().Int("port", cfg.Port).Str("lobby", sim.Prefix()+"/").Msg("simulator starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
}
