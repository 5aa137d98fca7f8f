// Package main initializes and starts the HackBridge HTTP server,
// setting up configuration, logging, storage, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/hackbridge/hackbridge/internal/app"
	"github.com/hackbridge/hackbridge/internal/config"
	"github.com/hackbridge/hackbridge/internal/logger"
	"github.com/hackbridge/hackbridge/internal/server/handler/http"
	"github.com/hackbridge/hackbridge/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the configured key-value backend.
	store, err := app.OpenStore(ctx, options.Storage, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot open storage", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	// Build repositories and services, seeding demo data when enabled.
	a, err := app.New(ctx, store, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init application", zap.Error(err))
	}

	// Purge expired sessions in the background.
	service.StartSessionCleaner(ctx, a.Sessions, options.CleanerInterval, time.Now, zapLogger)

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:    &http.AuthHandler{AuthService: a.Auth, Log: zapLogger},
		Courses: &http.CourseHandler{Courses: a.CourseService, Log: zapLogger},
		Tasks:   &http.TaskHandler{Tasks: a.TaskService, Log: zapLogger},
		Cart:    &http.CartHandler{Cart: a.CartService, Log: zapLogger},
		Quiz:    &http.QuizHandler{Quiz: a.QuizService, Log: zapLogger},
		Admin:   &http.AdminHandler{Admin: a.AdminService, Log: zapLogger},
		Health:  &http.HealthHandler{Store: store, Log: zapLogger},
	}, a.Auth, options.CORSOrigins, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if options.TLSCert != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	go func() {
		var err error
		if options.TLSCert != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
			err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
		} else {
			zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
