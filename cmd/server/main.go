// server runs the attendance ledger: gRPC and HTTP APIs, session expiry and the retention sweeper.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"attendance-ledger/backend/internal/audit"
	audithandler "attendance-ledger/backend/internal/audit/handler"
	"attendance-ledger/backend/internal/config"
	devicehandler "attendance-ledger/backend/internal/device/handler"
	deviceservice "attendance-ledger/backend/internal/device/service"
	healthhandler "attendance-ledger/backend/internal/health/handler"
	"attendance-ledger/backend/internal/history"
	"attendance-ledger/backend/internal/httpapi"
	"attendance-ledger/backend/internal/identifier"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/policy/engine"
	"attendance-ledger/backend/internal/security"
	"attendance-ledger/backend/internal/server"
	"attendance-ledger/backend/internal/server/interceptors"
	"attendance-ledger/backend/internal/session/expiry"
	sessionhandler "attendance-ledger/backend/internal/session/handler"
	sessionservice "attendance-ledger/backend/internal/session/service"
	submissionhandler "attendance-ledger/backend/internal/submission/handler"
	submissionservice "attendance-ledger/backend/internal/submission/service"
	"attendance-ledger/backend/internal/telemetry"
	"attendance-ledger/backend/internal/telemetry/metrics"
	telemetryotel "attendance-ledger/backend/internal/telemetry/otel"
	"attendance-ledger/backend/internal/telemetry/producer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "attendance-ledger",
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	rec := metrics.New(providers.MeterProvider.Meter("attendance-ledger"))

	events := telemetry.FanOut{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err := producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		if err != nil {
			log.Fatalf("telemetry: kafka: %v", err)
		}
		defer kafkaProducer.Close()
		events = append(events, kafkaProducer)
		log.Printf("telemetry: publishing events to kafka topic %s", cfg.TelemetryKafkaTopic)
	}

	st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.close()

	var tokens rbac.TokenValidator
	if cfg.JWTPublicKey != "" {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			log.Fatalf("security: JWT_PUBLIC_KEY: %v", err)
		}
		tokens = security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, 0)
	} else {
		log.Println("security: no JWT_PUBLIC_KEY; trusting x-user-id/x-user-role headers")
	}

	authz, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	clk := clock.Real{}
	retention := history.NewPolicy(cfg.Retention())
	sessions := sessionservice.NewService(st.sessions, st.submissions, retention, clk,
		sessionservice.Config{Duration: cfg.Duration(), CodeLength: cfg.AccessCodeLength}, events, rec)
	scheduler := expiry.NewScheduler(clk, cfg.Duration(), sessions)
	sessions.SetScheduler(scheduler)
	hasher := security.NewFingerprintHasher(cfg.FingerprintHashKey)
	registry := deviceservice.NewRegistry(st.devices, hasher, clk, events, rec)
	resolver := identifier.NewResolver(st.identifiers)
	ledger := submissionservice.NewLedger(st.submissions, sessions, registry, resolver, hasher, clk, events, rec)

	if n, err := scheduler.Recover(ctx); err != nil {
		log.Printf("expiry: recover failed: %v", err)
	} else if n > 0 {
		log.Printf("expiry: re-armed %d active sessions", n)
	}

	var pinger healthhandler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	sessionAPI := sessionhandler.NewAPI(sessions, authz)
	submissionAPI := submissionhandler.NewAPI(ledger, sessions, authz)
	deviceSrv := devicehandler.NewServer(registry, authz)
	auditSrv := audithandler.NewServer(st.audit, authz)
	healthSrv := healthhandler.NewServer(pinger, authz)

	grpcServer := server.NewServer(server.Deps{
		Sessions:    sessionAPI,
		Submissions: submissionAPI,
		Devices:     deviceSrv,
		Audit:       auditSrv,
		Health:      healthSrv,
		Tokens:      tokens,
		AuditTrail:  audit.NewLogger(st.audit, interceptors.ClientIP, clk),
		Events:      events,
	})
	httpServer := httpapi.NewServer(&httpapi.Options{
		Address:     cfg.HTTPAddr,
		Debug:       cfg.Env == "development",
		Sessions:    sessionAPI,
		Submissions: submissionAPI,
		Devices:     deviceSrv,
		Audit:       auditSrv,
		Health:      healthSrv,
		Tokens:      tokens,
		AuditRepo:   st.audit,
		Events:      events,
		Clock:       clk,
	})
	sweeper := history.NewSweeper(st.sessions, st.submissions, retention, clk, cfg.Sweep(), events, rec)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cfg.HTTPAddr != "" {
			if err := httpServer.Stop(shutdownCtx); err != nil {
				log.Printf("HTTP shutdown: %v", err)
			}
		}
		grpcServer.GracefulStop()
		scheduler.Shutdown()
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), telemetry.DrainTimeout)
		defer cancelDrain()
		if err := telemetry.Drain(drainCtx); err != nil {
			log.Printf("telemetry: drain: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: %v", err)
	}
	log.Println("server stopped")
}
