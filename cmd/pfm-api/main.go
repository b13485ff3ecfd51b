// Package main provides the entry point for the PumpFoilMap API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pumpfoilmap/pfm-api/internal/api"
	"github.com/pumpfoilmap/pfm-api/internal/auth"
	"github.com/pumpfoilmap/pfm-api/internal/capsule"
	"github.com/pumpfoilmap/pfm-api/internal/captcha"
	"github.com/pumpfoilmap/pfm-api/internal/config"
	"github.com/pumpfoilmap/pfm-api/internal/logging"
	"github.com/pumpfoilmap/pfm-api/internal/metrics"
	"github.com/pumpfoilmap/pfm-api/internal/moderation"
	"github.com/pumpfoilmap/pfm-api/internal/notify"
	"github.com/pumpfoilmap/pfm-api/internal/storage"
)

const (
	version               = "2026.10.1"
	serverShutdownTimeout = 30 * time.Second
)

// components holds everything built from the configuration.
type components struct {
	logger     *slog.Logger
	logLevel   *slog.LevelVar
	store      *storage.SQLiteStorage
	dispatcher *notify.Dispatcher
	registry   *prometheus.Registry
	router     chi.Router
}

func main() {
	// Handle health check subcommand for distroless container health checks
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer func() {
		// Let in-flight notifications finish.
		c.dispatcher.Wait()
		if err := c.store.Close(); err != nil {
			c.logger.Error("failed to close storage", "error", err)
		}
	}()

	c.logger.Info("PumpFoilMap API starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsListenAddr,
		"database", cfg.DatabasePath,
		"admin_configured", cfg.AdminToken != "",
		"admin_mail_configured", cfg.AdminMail != "",
		"captcha_configured", strings.TrimSpace(cfg.CaptchaPrivateKey) != "",
		"smtp_configured", cfg.SMTPHost != "",
	)

	if cfg.MetricsListenAddr != "" {
		metricsServer := createServer(cfg.MetricsListenAddr, metricsRouter(c.registry))
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			//nolint:errcheck // Best effort on shutdown
			metricsServer.Close()
		}()
	}

	return startServerAndWaitForShutdown(c.logger, createServer(cfg.ListenAddr, c.router))
}

// initializeComponents wires storage, notifications, captcha, the admin gate
// and the router from cfg.
func initializeComponents(cfg *config.Config) (*components, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	logger := logging.New(os.Stdout, logLevel)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Init(registry, version); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if cfg.SeedFile != "" {
		n, err := store.ImportSeedFile(context.Background(), cfg.SeedFile, time.Now())
		if err != nil {
			//nolint:errcheck // Already failing
			store.Close()
			return nil, fmt.Errorf("failed to import seed file: %w", err)
		}
		logger.Info("Seed file imported", "path", cfg.SeedFile, "inserted", n)
	}

	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.AppName)
	} else {
		logger.Warn("SMTP_HOST not set, notifications will only be logged")
		mailer = notify.NewLogMailer(logger)
	}
	dispatcher := notify.NewDispatcher(mailer, logger, notify.DefaultTimeout)

	templates := notify.Templates{App: cfg.AppName, AdminMail: cfg.AdminMail}
	svc := moderation.NewService(store, dispatcher, templates, logger)

	var captchaSvc *captcha.Service
	if strings.TrimSpace(cfg.CaptchaPrivateKey) != "" {
		cipher, err := capsule.New(cfg.CaptchaPrivateKey)
		if err != nil {
			//nolint:errcheck // Already failing
			store.Close()
			return nil, fmt.Errorf("failed to initialize captcha cipher: %w", err)
		}
		captchaSvc = captcha.NewService(cipher, captcha.Options{
			TTL:       cfg.CaptchaTTL,
			SingleUse: cfg.CaptchaSingleUse,
		})
	} else {
		logger.Warn("CAPTCHA_PRIVATE_KEY not set, captcha routes are disabled")
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, every admin request will be rejected")
	}
	gate := auth.NewGate(cfg.AdminToken)

	handler := api.NewHandler(svc, captchaSvc, gate, logLevel, logger)

	return &components{
		logger:     logger,
		logLevel:   logLevel,
		store:      store,
		dispatcher: dispatcher,
		registry:   registry,
		router:     handler.NewRouter(cfg.MaxBodyBytes),
	}, nil
}

func metricsRouter(reg *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler(reg))
	return r
}

// createServer returns an http.Server with conservative timeouts.
func createServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// startServerAndWaitForShutdown serves until SIGINT/SIGTERM, then drains
// in-flight requests for up to serverShutdownTimeout.
func startServerAndWaitForShutdown(logger *slog.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server shut down gracefully")
	return nil
}

// runHealthCheck performs an HTTP health check against the local server.
// Returns 0 on success, 1 on failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = config.DefaultListenAddr
	}
	if addr[0] == ':' {
		addr = "localhost" + addr
	}
	return doHealthCheck("http://" + addr + "/health")
}

// doHealthCheck performs the actual health check HTTP request.
// Extracted for testability.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	//nolint:errcheck // Response body close errors are unrecoverable in health check
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
