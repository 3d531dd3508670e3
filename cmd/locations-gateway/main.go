package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/locations-gateway/internal/config"
	gwhttp "github.com/pribylovaa/locations-gateway/internal/http"
	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/service"
	"github.com/pribylovaa/locations-gateway/internal/storage"
	"github.com/pribylovaa/locations-gateway/internal/storage/minio"
	"github.com/pribylovaa/locations-gateway/internal/storage/postgres"
	"github.com/pribylovaa/locations-gateway/internal/upstream"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
	logctx "github.com/pribylovaa/locations-gateway/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting locations-gateway", "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()
	rootCtx = logctx.Into(rootCtx, log)

	m := metrics.New(prometheus.DefaultRegisterer)

	client, err := upstream.New(upstream.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		UserAgent: cfg.Upstream.UserAgent,
		Device: transport.Device{
			ID:    cfg.Upstream.Device.ID,
			Type:  cfg.Upstream.Device.Type,
			Model: cfg.Upstream.Device.Model,
		},
		Timeout: cfg.Timeouts.Upstream,
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		log.Error("upstream_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var journal storage.Journal = storage.NopJournal{}
	if cfg.Postgres.URL != "" {
		pg, err := postgres.New(rootCtx, cfg.Postgres.URL)
		if err != nil {
			log.Error("postgres_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		journal = pg
		log.Info("journal_enabled")
	} else {
		log.Warn("journal_disabled", slog.String("reason", "postgres url is empty"))
	}
	defer journal.Close()

	var archive storage.ImportArchive = storage.NopArchive{}
	if cfg.S3.Endpoint != "" {
		s3, err := minio.New(rootCtx, cfg.S3)
		if err != nil {
			log.Error("s3_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		archive = s3
		log.Info("import_archive_enabled", slog.String("bucket", cfg.S3.Bucket))
	} else {
		log.Warn("import_archive_disabled", slog.String("reason", "s3 endpoint is empty"))
	}

	svc := service.New(client, journal, archive, *cfg, m)

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		if err := svc.StartSweeper(rootCtx); err != nil {
			log.Warn("sweeper_disabled", slog.String("err", err.Error()))
		}
	}()

	apiHandler := gwhttp.NewRouter(svc, gwhttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
		rootCancel()
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	<-sweepDone
	log.Info("service_stopped", slog.Int("sessions", svc.Sessions()))
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
