package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reviewboost/review-api/internal/config"
	"github.com/reviewboost/review-api/internal/email"
	"github.com/reviewboost/review-api/internal/handler"
	authHandler "github.com/reviewboost/review-api/internal/handler/auth"
	clientHandler "github.com/reviewboost/review-api/internal/handler/client"
	reminderHandler "github.com/reviewboost/review-api/internal/handler/reminder"
	reviewHandler "github.com/reviewboost/review-api/internal/handler/review"
	settingsHandler "github.com/reviewboost/review-api/internal/handler/settings"
	"github.com/reviewboost/review-api/internal/middleware"
	"github.com/reviewboost/review-api/internal/repository/postgres"
	"github.com/reviewboost/review-api/internal/router"
	authService "github.com/reviewboost/review-api/internal/service/auth"
	clientService "github.com/reviewboost/review-api/internal/service/client"
	"github.com/reviewboost/review-api/internal/service/quota"
	reminderService "github.com/reviewboost/review-api/internal/service/reminder"
	reviewService "github.com/reviewboost/review-api/internal/service/review"
	settingsService "github.com/reviewboost/review-api/internal/service/settings"
	"github.com/reviewboost/review-api/pkg/logger"
	messagingRedis "github.com/reviewboost/review-api/pkg/messaging/redis"
	"github.com/reviewboost/review-api/pkg/metrics"
	"github.com/reviewboost/review-api/pkg/scheduler"
	"github.com/reviewboost/review-api/pkg/sms"
	"github.com/reviewboost/review-api/pkg/validator"
)

func main() {
	log := logger.New(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal(err, "failed to register validation rules")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := messagingRedis.NewBroker(messagingRedis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log)
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	m := metrics.New("review_api")

	clientRepo := postgres.NewClientRepository(db, m)
	tenantRepo := postgres.NewTenantRepository(db, m)
	auditRepo := postgres.NewSMSAuditRepository(db, m)

	transport := sms.NewClient(sms.Config{
		BaseURL: cfg.SMS.BaseURL,
		Timeout: cfg.SMS.Timeout,
	}, log)

	quotaSvc := quota.NewService(tenantRepo, auditRepo, log, m)
	policy := reminderService.NewPolicy(cfg.Reminder.BaseURL)
	reminderSvc := reminderService.NewService(clientRepo, tenantRepo, quotaSvc, transport, policy, log, m)
	clientSvc := clientService.NewService(clientRepo, log)
	settingsSvc := settingsService.NewService(tenantRepo, log)
	quotaSvc.WithInvalidator(settingsSvc)
	mailSvc := email.NewSMTPService(cfg.SMTP, log)
	reviewSvc := reviewService.NewService(clientRepo, settingsSvc, mailSvc, broker, log)
	authSvc := authService.NewService(cfg.Auth, log)

	var sched *scheduler.Scheduler
	if cfg.Reminder.Enabled {
		sched, err = scheduler.New(cfg.Reminder.Interval, func(ctx context.Context) {
			if _, err := reminderSvc.RunSweep(ctx); err != nil {
				log.Error(err, "scheduled reminder sweep failed")
			}
		}, log)
		if err != nil {
			log.Fatal(err, "failed to build reminder scheduler")
		}
		sched.OnTickSkipped(m.SweepsSkipped.Inc)
		sched.Start()
		defer sched.Stop()
	}

	engine := router.New(cfg, router.Handlers{
		Health:   handler.NewHealthHandler(db),
		Auth:     authHandler.NewHandler(authSvc),
		Client:   clientHandler.NewHandler(clientSvc),
		Settings: settingsHandler.NewHandler(settingsSvc),
		Review:   reviewHandler.NewHandler(reviewSvc),
		Reminder: reminderHandler.NewHandler(reminderSvc, quotaSvc, sched, log),
	}, middleware.NewAuthMiddleware(authSvc))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server shutdown failed")
	}
}
