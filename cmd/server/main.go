// Command server runs the account lifecycle and identity harmonization
// workflow engine. main wires dependencies and the process lifecycle;
// business logic lives in the internal services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	accountservice "bankops/internal/account/service"
	accountstore "bankops/internal/account/store"
	"bankops/internal/audit"
	"bankops/internal/gateway"
	"bankops/internal/harmonization/otp"
	harmonizationservice "bankops/internal/harmonization/service"
	harmonizationstore "bankops/internal/harmonization/store"
	"bankops/internal/identity"
	jwttoken "bankops/internal/jwt_token"
	"bankops/internal/platform/config"
	"bankops/internal/platform/httpserver"
	"bankops/internal/platform/logger"
	"bankops/internal/platform/metrics"
	"bankops/internal/platform/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backing stores: postgres and redis when configured, memory otherwise.
	var accounts accountservice.AccountStore = accountstore.NewInMemory()
	var requests harmonizationservice.RequestStore = harmonizationstore.NewInMemory()
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		accountPG := accountstore.NewPostgres(pool)
		requestPG := harmonizationstore.NewPostgres(pool)
		if err := accountPG.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure account schema", "error", err)
			os.Exit(1)
		}
		if err := requestPG.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure harmonization schema", "error", err)
			os.Exit(1)
		}
		accounts = accountPG
		requests = requestPG
	}

	var otpStore otp.Store = otp.NewMemoryStore()
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		otpStore = otp.NewRedisStore(redisClient.Client)
	}

	var auditStore audit.Store = audit.NewMemoryStore()
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(brokers, cfg.KafkaAuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	}
	auditor := audit.NewPublisher(auditStore)

	m := metrics.New()

	accountSvc := accountservice.New(accounts,
		accountservice.WithLogger(log),
		accountservice.WithAuditPublisher(auditor),
		accountservice.WithMetrics(m),
	)

	harmonizationOpts := []harmonizationservice.Option{
		harmonizationservice.WithLogger(log),
		harmonizationservice.WithAuditPublisher(auditor),
		harmonizationservice.WithMetrics(m),
	}
	if cfg.FaydaBaseURL != "" {
		provider := identity.NewProviderClient(cfg.FaydaBaseURL,
			identity.WithProviderLogger(log),
			identity.WithAPIKey(cfg.FaydaAPIKey))
		harmonizationOpts = append(harmonizationOpts, harmonizationservice.WithProvider(provider))
	}
	harmonizationSvc := harmonizationservice.New(
		requests,
		accountSvc,
		otp.NewIssuer(otpStore, cfg.OTPTTL),
		harmonizationOpts...,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "bankops", "bankops-api")
	router := gateway.New(gateway.Deps{
		Accounts:       accountSvc,
		Harmonizations: harmonizationSvc,
		Push:           harmonizationSvc,
		TokenValidator: jwtService,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting workflow engine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.FaydaStreamURL != "" {
		channel := identity.NewChannel(cfg.FaydaStreamURL, harmonizationSvc,
			identity.WithChannelLogger(log))
		group.Go(func() error { return channel.Run(groupCtx) })
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
