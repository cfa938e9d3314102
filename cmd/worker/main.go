package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewboost/review-api/internal/config"
	"github.com/reviewboost/review-api/internal/handler"
	"github.com/reviewboost/review-api/internal/repository/postgres"
	"github.com/reviewboost/review-api/internal/service/quota"
	reminderService "github.com/reviewboost/review-api/internal/service/reminder"
	"github.com/reviewboost/review-api/pkg/logger"
	"github.com/reviewboost/review-api/pkg/metrics"
	"github.com/reviewboost/review-api/pkg/scheduler"
	"github.com/reviewboost/review-api/pkg/sms"
)

const healthAddr = ":8081"

// The worker runs the reminder sweep on its own, for deployments that keep
// the HTTP API and the scheduler in separate processes.
func main() {
	log := logger.New(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.New("review_worker")

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

	sched, err := scheduler.New(cfg.Reminder.Interval, func(ctx context.Context) {
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

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	handler.NewHealthHandler(db).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"scheduler":         sched.Status(),
			"sweep_in_progress": reminderSvc.Sweeping(),
		})
	})

	srv := &http.Server{Addr: healthAddr, Handler: r}
	go func() {
		log.Info("worker health endpoint listening", "addr", healthAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "health server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "health server shutdown failed")
	}
}
