package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	audithandler "compass/internal/audit/handler"
	auditmetrics "compass/internal/audit/metrics"
	"compass/internal/audit/relay"
	auditservice "compass/internal/audit/service"
	auditstore "compass/internal/audit/store"
	authhandler "compass/internal/auth/handler"
	authservice "compass/internal/auth/service"
	httpapi "compass/internal/http"
	jwttoken "compass/internal/jwt_token"
	"compass/internal/notify"
	"compass/internal/platform/config"
	"compass/internal/platform/httpserver"
	"compass/internal/platform/logger"
	platformmetrics "compass/internal/platform/metrics"
	"compass/internal/platform/postgres"
	platformredis "compass/internal/platform/redis"
	regstore "compass/internal/registration/store"
	retentioncron "compass/internal/retention/cron"
	retentionhandler "compass/internal/retention/handler"
	retentionmetrics "compass/internal/retention/metrics"
	retentionservice "compass/internal/retention/service"
	"compass/internal/retention/store/archive"
	"compass/internal/retention/store/pending"
	sessionservice "compass/internal/session/service"
	sessionstore "compass/internal/session/store"
	userstore "compass/internal/user/store"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the feature services.
func main() {
	// A missing .env is fine: production injects the real environment.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(cfg.Logging)

	if err := run(cfg, log); err != nil {
		log.Error("compass exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsDevelopment() {
		log.Warn("running with development defaults; set COMPASS_ENV and secrets for production")
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	users := userstore.NewPostgres(db)
	registrations := regstore.NewPostgres(db)
	auditLedger := auditstore.NewPostgres(db)
	pendingStore := pending.NewPostgres(db)
	archiveStore := archive.NewPostgres(db)

	var sessionBackend sessionservice.Store = sessionstore.NewMemory()
	if redisClient != nil {
		sessionBackend = sessionstore.NewRedis(redisClient.Client)
	} else {
		log.Warn("redis not configured, sessions are in-memory and die with the process")
	}
	sessions := sessionservice.New(sessionBackend, cfg.Auth.SessionTTL)

	auditMetrics := auditmetrics.New()
	auditRecorder := auditservice.New(auditLedger,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditMetrics),
	)

	jwtService := jwttoken.New(cfg.Auth.JWTSigningKey, "compass", "compass")
	auth := authservice.New(users, sessions, jwtService, cfg.Auth.AccessTokenTTL,
		authservice.WithLogger(log),
		authservice.WithAuditRecorder(auditRecorder),
	)

	retention := retentionservice.New(
		retentionservice.Stores{
			Users:      users,
			Attendance: registrations,
			Pending:    pendingStore,
			Archive:    archiveStore,
		},
		sessions,
		newRetentionPostgresTx(db),
		cfg.Retention.Window,
		retentionservice.WithLogger(log),
		retentionservice.WithMetrics(retentionmetrics.New()),
		retentionservice.WithAuditRecorder(auditRecorder),
		retentionservice.WithSweepConcurrency(cfg.Retention.SweepConcurrency),
	)

	notifier := notify.NewMailer(notify.Config{
		PublicKey:  cfg.Mail.MailjetAPIKey,
		PrivateKey: cfg.Mail.MailjetSecretKey,
		Sender:     cfg.Mail.FromAddress,
		SenderName: cfg.Mail.FromName,
		Recipient:  cfg.Mail.OpsAddress,
	}, notify.WithLogger(log))

	sweeper, err := retentioncron.New(retention, cfg.Retention.SweepSchedule,
		retentioncron.WithLogger(log),
		retentioncron.WithAuditRecorder(auditRecorder),
		retentioncron.WithNotifier(notifier),
	)
	if err != nil {
		return fmt.Errorf("configure sweep scheduler: %w", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweep scheduler: %w", err)
	}
	defer sweeper.Stop()
	// Catch up on anything that came due while the process was down.
	go sweeper.RunOnce(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := relay.NewKafkaProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()

		auditRelay := relay.New(auditLedger, producer,
			relay.WithLogger(log),
			relay.WithMetrics(auditMetrics),
			relay.WithInterval(cfg.Kafka.RelayInterval),
		)
		go func() {
			if err := auditRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	} else {
		log.Info("kafka not configured, audit entries stay in the outbox")
	}

	checks := []httpapi.Check{{Name: "postgres", Probe: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, httpapi.Check{Name: "redis", Probe: redisClient.Health})
	}

	router := httpapi.New(httpapi.Deps{
		Logger:          log,
		Metrics:         platformmetrics.New(),
		TokenValidator:  jwttoken.NewMiddlewareAdapter(jwtService),
		Sessions:        sessions,
		AdminToken:      cfg.Auth.AdminToken,
		Auth:            authhandler.New(auth, log),
		Audit:           audithandler.New(auditRecorder, log),
		Retention:       retentionhandler.New(retention, auditRecorder, log),
		ReadinessChecks: checks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("compass listening", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
