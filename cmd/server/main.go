// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/iyunix/go-mutabakat/internal/config"
	"github.com/iyunix/go-mutabakat/internal/database"
	"github.com/iyunix/go-mutabakat/internal/handlers"
	"github.com/iyunix/go-mutabakat/internal/ratelimit"
	approvalrepo "github.com/iyunix/go-mutabakat/internal/repository/approval"
	linkrepo "github.com/iyunix/go-mutabakat/internal/repository/link"
	"github.com/iyunix/go-mutabakat/internal/services"
	"github.com/iyunix/go-mutabakat/internal/services/mail"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
)

func main() {
	cfg := config.Load()
	logger := services.NewLogger("mutabakat", cfg.Environment, cfg.LogLevel)

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logrus.Fatalf("DB Error: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	links := linkrepo.NewGormLinkRepository(db)
	approvals := approvalrepo.NewGormApprovalRepository(db)

	// --- Rate limiter ---
	limiterConfig := &ratelimit.Config{
		WindowSize:    cfg.RateLimitWindow,
		MaxAttempts:   cfg.RateLimitMax,
		CleanupPeriod: 10 * time.Minute,
	}
	var limiter ratelimit.Limiter
	var closeLimiter func() error
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress, Password: cfg.RedisPassword})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("Redis Error: %v", err)
		}
		limiter = ratelimit.NewRedisRateLimiter(rdb, limiterConfig, "mutabakat:respond")
		closeLimiter = rdb.Close
		logger.Info("using redis rate limiter", "address", cfg.RedisAddress)
	} else {
		mem := ratelimit.NewMemoryRateLimiter(limiterConfig)
		limiter = mem
		closeLimiter = func() error { mem.Close(); return nil }
	}

	// --- Mail ---
	mailConfig := &mail.Config{
		APIURL:    cfg.MailAPIURL,
		APIKey:    cfg.MailAPIKey,
		FromEmail: cfg.MailFrom,
		FromName:  cfg.MailFromName,
		Timeout:   cfg.MailTimeout,
	}
	var provider mail.Provider
	if err := mailConfig.Validate(); err != nil {
		if cfg.IsProduction() {
			logrus.Fatalf("Mail configuration error: %v", err)
		}
		logger.Warn("mail api not configured, codes are written to the log", "reason", err)
		provider = mail.NewLogProvider(logger)
	} else {
		provider = mail.NewHTTPProvider(mailConfig)
	}
	otpMailer := mail.NewOtpMailer(provider, mailConfig, mail.ValidityLabel(cfg.OtpTTL))

	// --- Services ---
	recCfg := &reconciliation.Config{
		OtpTTL:            cfg.OtpTTL,
		MaxOtpAttempts:    cfg.OtpMaxAttempts,
		LockoutDuration:   cfg.OtpLockout,
		DefaultCodePrefix: cfg.DefaultCodePrefix,
		OtpHashCost:       bcrypt.DefaultCost,
		Now:               time.Now,
	}
	if err := recCfg.Validate(); err != nil {
		logrus.Fatalf("Reconciliation configuration error: %v", err)
	}
	gate := reconciliation.NewVerificationGate()
	resolver := reconciliation.NewLinkResolver(links, gate, recCfg, logger)
	otpIssuer := reconciliation.NewOtpIssuer(links, otpMailer, recCfg, logger)
	recorder := reconciliation.NewResponseRecorder(links, gate, limiter, recCfg, logger)
	approvalService := reconciliation.NewApprovalService(approvals, recCfg, logger)

	// --- Router Setup ---
	router := handlers.NewRouter(handlers.RouterDeps{
		Reconciliation:    handlers.NewReconciliationHandler(resolver, otpIssuer, recorder, logger),
		Approval:          handlers.NewApprovalHandler(approvalService, logger),
		ClientLog:         handlers.NewClientLogHandler(logger),
		Logger:            logger,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "env", cfg.Environment, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := closeLimiter(); err != nil {
		logger.Error("failed to close rate limiter", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited")
}
