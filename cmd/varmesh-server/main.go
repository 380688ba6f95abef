// Package main provides the entry point for varmesh-server.
//
// varmesh-server is the coordination process for VarMesh, a shared
// variable-file synchronization system. It accepts websocket sessions
// from clients, fans variable deltas out to subscribers, and persists
// service file contents so reconnecting clients start from the last
// known state.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/varmesh/varmesh-go/internal/core/service"
	"github.com/varmesh/varmesh-go/internal/infra/buildinfo"
	"github.com/varmesh/varmesh-go/internal/infra/confloader"
	"github.com/varmesh/varmesh-go/internal/infra/shutdown"
	"github.com/varmesh/varmesh-go/internal/infra/tlsroots"
	"github.com/varmesh/varmesh-go/internal/server/config"
	"github.com/varmesh/varmesh-go/internal/server/httpserver"
	"github.com/varmesh/varmesh-go/internal/server/hub"
	"github.com/varmesh/varmesh-go/internal/server/store"
	"github.com/varmesh/varmesh-go/internal/telemetry/logger"
	"github.com/varmesh/varmesh-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		issueTenant = flag.String("issue-key", "", "Issue an API key for the given tenant and exit")
		issueScope  = flag.String("services", "", "Comma-separated service allowlist for -issue-key (empty = all)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("varmesh-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger := initLogger(cfg)

	st, err := openStore(cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	auth := service.NewAuthService(st)

	if *issueTenant != "" {
		defer st.Close()
		return issueKey(auth, *issueTenant, *issueScope)
	}

	log.Info("starting varmesh-server",
		"version", buildinfo.Get().Version,
		"addr", cfg.Server.Addr,
		"ephemeral", cfg.Storage.Ephemeral)

	metrics := metric.New()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	wsHub := hub.New(auth, st, hub.WithLogger(slogLogger), hub.WithMetrics(metrics))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		WSHandler: wsHub,
		Registry:  registry,
		Logger:    slogLogger,
	})
	httpServer := httpserver.New(cfg.Server.Addr, router)

	var certWatcher *tlsroots.Watcher
	useTLS := cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != ""
	if useTLS {
		certWatcher, err = tlsroots.NewWatcher(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile,
			tlsroots.WithLogger(slogLogger))
		if err != nil {
			return fmt.Errorf("load tls certificate: %w", err)
		}
		certWatcher.StartAsync()
		httpServer.SetTLSConfig(&tls.Config{
			GetCertificate: certWatcher.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		})
	}

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down store")
		return st.Close()
	})
	if certWatcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			certWatcher.Stop()
			return nil
		})
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "tls", useTLS)

		var err error
		if useTLS {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, *slog.Logger) {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	logger.SetDefault(log)
	return log, log.Slog()
}

func openStore(cfg *config.ServerConfig, log *slog.Logger) (store.Store, error) {
	if cfg.Storage.Ephemeral {
		return store.NewMemoryStore(), nil
	}
	return store.NewBadgerStore(cfg.Storage.DataDir, log)
}

// issueKey creates an API key and prints the credentials once. The
// secret is not recoverable afterwards.
func issueKey(auth *service.AuthService, tenantID, scope string) error {
	var services []string
	if scope != "" {
		services = strings.Split(scope, ",")
	}

	key, secret, err := auth.IssueKey(context.Background(), tenantID, services)
	if err != nil {
		return fmt.Errorf("issue key: %w", err)
	}

	fmt.Printf("key_id: %s\nsecret: %s\ntenant: %s\n", key.ID, secret, key.TenantID)
	if len(key.Services) > 0 {
		fmt.Printf("services: %s\n", strings.Join(key.Services, ","))
	}
	return nil
}
