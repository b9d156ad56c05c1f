// Command authgate-demo serves a small route table behind the authgate
// pipeline.
//
// It uses an in-process miniredis unless REDIS_ADDR is set, and an in-memory
// record store seeded from seed.yaml. Configuration comes from the
// environment and an optional .env file.
//
// Endpoints:
//
//	POST /login     JSON {"userId":"alice"}; sets session cookies
//	GET  /metrics   Prometheus metrics
//	...             every route in routes.yaml, wrapped in middleware.Protect
//
// Run:
//
//	go run ./cmd/authgate-demo
//
// Then:
//
//	curl -i -c jar.txt -X POST localhost:8080/login -d '{"userId":"alice"}'
//	curl -i -b jar.txt localhost:8080/api/orders
//	curl -i -H 'x-api-key: demo-plugin-key' -X POST localhost:8080/api/finance/withdraw
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/records"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr          = flag.String("addr", ":8080", "listen address")
		envFile       = flag.String("env", ".env", "dotenv file, ignored when missing")
		secureCookies = flag.Bool("secure-cookies", false, "mark session cookies Secure")
	)
	flag.Parse()

	if err := authgate.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg, err := authgate.ConfigFromEnv()
	if err != nil {
		return err
	}
	cfg.Transport.CookieSecure = *secureCookies
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit.Enabled = true

	logger, err := authgate.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.JWT.AccessPrivateKey) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		cfg.JWT.AccessPrivateKey = secret
		logger.Warn("no access token secret configured, using a random one", zap.String("env", authgate.EnvAccessSecret))
	}

	client, closeRedis, err := redisClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := records.NewMemory()
	seed, err := records.LoadSeed(bytes.NewReader(seedYAML))
	if err != nil {
		return err
	}
	if err := seed.Apply(ctx, store); err != nil {
		return err
	}
	table, err := loadRoutes(routesYAML)
	if err != nil {
		return err
	}

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithRecordStore(store).
		WithLogger(logger).
		WithAuditSink(authgate.NewZapSink(logger)).
		Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	for _, w := range engine.SecurityReport().Warnings {
		logger.Warn("security posture", zap.String("warning", w))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServer(engine, store, logger).router(table),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", *addr),
			zap.Int("routes", len(table.Routes)),
			zap.Bool("demo_mode", cfg.Gate.DemoMode),
			zap.Bool("maintenance", cfg.Maintenance.Enabled),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// redisClient connects to cfg.Addr, or to an in-process miniredis when no
// address is configured.
func redisClient(cfg authgate.RedisConfig, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if os.Getenv(authgate.EnvRedisAddr) != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		logger.Info("using redis", zap.String("addr", cfg.Addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger.Info("using miniredis", zap.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
