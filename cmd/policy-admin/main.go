// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command policy-admin runs the read-only admin and simulation HTTP
// surface over the accounting-policy engine: snapshots of association
// and QoS state, and one endpoint per lifecycle operation so an operator
// (or policyctl) can drive a job through validate/begin/fini/alter
// without a real scheduler attached. Analogous to the teacher's
// tests/mocks mock REST server, and to slurmrestd itself, just serving
// this engine's own domain instead of a live cluster's.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jontk/slurm-policy-engine/internal/collaborators"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/engine"
	"github.com/jontk/slurm-policy-engine/pkg/auth"
	"github.com/jontk/slurm-policy-engine/pkg/config"
	"github.com/jontk/slurm-policy-engine/pkg/logging"
	"github.com/jontk/slurm-policy-engine/pkg/metrics"
	"github.com/jontk/slurm-policy-engine/pkg/middleware"
	"github.com/jontk/slurm-policy-engine/pkg/streaming"
	"github.com/jontk/slurm-policy-engine/pkg/watch"
)

func main() {
	seedPath := flag.String("seed", "", "path to a JSON seed file describing QoS/association/partition state (defaults to a small built-in demo hierarchy)")
	token := flag.String("token", os.Getenv("SLURM_POLICY_ADMIN_TOKEN"), "bearer token required on every request; empty disables auth")
	accountingURL := flag.String("accounting-url", os.Getenv("SLURM_POLICY_ACCOUNTING_URL"), "base URL of a remote accounting service to resolve associations against on a local miss (e.g. another policy-admin instance); empty keeps resolution entirely in-process")
	accountingToken := flag.String("accounting-token", os.Getenv("SLURM_POLICY_ACCOUNTING_TOKEN"), "bearer token presented to --accounting-url")
	flag.Parse()

	cfg := config.NewDefault()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logCfg := logging.DefaultConfig()
	if cfg.LogFormat == "json" {
		logCfg.Format = logging.FormatJSON
	}
	if cfg.Debug {
		logCfg.Level = slog.LevelDebug
	}
	log := logging.NewLogger(logCfg)
	met := metrics.NewInMemoryCollector()

	var regs *registries
	var err error
	if *seedPath != "" {
		regs, err = loadSeed(*seedPath)
		if err != nil {
			log.Error("failed to load seed file", "path", *seedPath, "error", err)
			os.Exit(1)
		}
	} else {
		regs = defaultRegistries()
	}

	hub := streaming.NewHub()
	jobs := newJobStore()

	var assocResolver collaborators.AssociationResolver = &registryAssociationResolver{assocs: regs.Associations}
	if *accountingURL != "" {
		rt := middleware.Chain(
			middleware.WithTimeout(5*time.Second),
			middleware.WithRetry(3, middleware.DefaultShouldRetry),
			middleware.WithLogging(log),
			middleware.WithAuth(auth.NewTokenAuth(*accountingToken)),
		)(http.DefaultTransport)
		assocResolver = newHTTPAssociationResolver(*accountingURL, &http.Client{Transport: rt}, regs.Associations, log)
		log.Info("resolving associations against remote accounting service", "url", *accountingURL)
	}

	eng := engine.New(
		regs.Associations,
		regs.QoS,
		regs.Partitions,
		cfg.Enforce,
		assocResolver,
		loggingPriorityHook{log: log},
		loggingAccountingHook{log: log},
		&hubEventPublisher{hub: hub},
		log,
		met,
	)

	scanner := watch.NewTimeoutScanner(jobs.Running, eng).WithInterval(cfg.TimeoutScanInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := scanner.Run(ctx)
	go func() {
		for ev := range events {
			log.Info("job timed out", "job_id", ev.JobID, "user_id", ev.UserID)
			jobs.SetState(ev.JobID, types.JobStateTimeout)
		}
	}()

	srv := newServer(eng, regs, jobs, hub, log, met)

	var handler http.Handler = srv.router
	if *token != "" {
		handler = auth.NewGuard(*token).Wrap(handler)
	}

	httpServer := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("policy-admin listening", "addr", cfg.AdminAddr, "enforce", cfg.Enforce.String())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

var _ collaborators.EventPublisher = (*hubEventPublisher)(nil)
