// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/accounts/admin"
	"github.com/moov-io/accounts/pkg/accounts"
	"github.com/moov-io/accounts/pkg/accountstore"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	httpAddr  = flag.String("http.addr", ":8080", "HTTP listen address")
	adminAddr = flag.String("admin.addr", ":9090", "Admin HTTP listen address")
	envFile   = flag.String("env", ".env", "Optional file of environment variables")

	// Metrics
	authSuccesses = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_successes",
		Help: "Count of successful authorizations",
	}, []string{"method"})
	authFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_failures",
		Help: "Count of failed authorizations",
	}, []string{"method"})

	accountsCreated = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "accounts_created",
		Help: "Count of accounts created",
	}, nil)
	accountsDeleted = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "accounts_deleted",
		Help: "Count of accounts deleted",
	}, nil)

	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "internal_server_errors",
		Help: "Count of failed requests, by cause logged separately",
	}, nil)
)

const Version = "0.2.0-dev"

func main() {
	flag.Parse()

	// Setup logging, default to stdout
	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting accounts server version %s", Version))

	if err := loadDotEnv(*envFile); err != nil {
		logger.Log("startup", "unable to read env file", "path", *envFile, "error", err)
		os.Exit(1)
	}
	cfg, err := readConfig(os.Getenv)
	if err != nil {
		logger.Log("startup", err)
		os.Exit(1)
	}
	hasher, err := cfg.hasher()
	if err != nil {
		logger.Log("startup", err)
		os.Exit(1)
	}

	if err := admin.Init(); err != nil {
		logger.Log("admin", err)
	}

	// Listen for application termination.
	errs := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := accountstore.Open(ctx, cfg.Store, logger)
	cancel()
	if err != nil {
		logger.Log("storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Log("storage", err)
		}
	}()
	logger.Log("storage", fmt.Sprintf("using %q account store", storeKind(cfg.Store)))

	svc := accounts.NewService(store, hasher, accounts.WithLogger(log.With(logger, "component", "accounts")))

	router := mux.NewRouter()
	addPingRoute(router)
	addLoginRoutes(router, logger, svc)
	addAccountRoutes(router, logger, svc)

	readTimeout, _ := time.ParseDuration("30s")
	writTimeout, _ := time.ParseDuration("30s")
	idleTimeout, _ := time.ParseDuration("60s")

	serve := &http.Server{
		Addr:    *httpAddr,
		Handler: router,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: false,
			MinVersion:         tls.VersionTLS12,
		},
		ReadTimeout:  readTimeout,
		WriteTimeout: writTimeout,
		IdleTimeout:  idleTimeout,
	}
	shutdownServer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serve.Shutdown(ctx); err != nil {
			logger.Log("shutdown", err)
		}
	}

	adminService := admin.SetupServer(*adminAddr)
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminService.BindAddress()))
		if err := adminService.Listen(); err != nil {
			logger.Log("admin", "shutting down", "error", err)
		}
	}()

	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr)
		errs <- serve.ListenAndServe()
	}()

	if err := <-errs; err != nil {
		adminService.Shutdown()
		shutdownServer()
		logger.Log("exit", err)
	}
}

func storeKind(cfg accountstore.Config) string {
	if cfg.Kind == "" {
		return "buntdb"
	}
	return cfg.Kind
}
