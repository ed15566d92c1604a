package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"pledgedesk/internal/config"
	cronrunner "pledgedesk/internal/cron"
	"pledgedesk/internal/db"
	"pledgedesk/internal/handler"
	"pledgedesk/internal/logger"
	"pledgedesk/internal/notify"
	gormrepository "pledgedesk/internal/repository/gorm"
	"pledgedesk/internal/service"

	_ "pledgedesk/docs"
)

func main() {
	cfgPath := os.Getenv("PD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}
	notifier := initNotifier(cfg.Notify, logger)
	auditSvc := &service.AuditRecorder{Repo: store, Logger: logger}
	statsSvc := &service.StatsService{Repo: store, Logger: logger}
	lifecycleSvc := &service.LifecycleService{
		Repo:     store,
		Audit:    auditSvc,
		Notifier: notifier,
		Logger:   logger,
	}
	executor := &service.ExecutionEngine{
		Repo:     store,
		Audit:    auditSvc,
		Notifier: notifier,
		Logger:   logger,
		Config:   cfg.Executor,
	}
	reviewSvc := &service.AccessReviewService{Repo: store, Audit: auditSvc, Logger: logger}
	reconciler := &service.ReconcilerService{
		Repo:   store,
		Audit:  auditSvc,
		Logger: logger,
		Config: cfg.Reconciler,
		Flags:  settingsSvc,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	sessionHandler := &handler.SessionHandler{
		Repo:      store,
		Lifecycle: lifecycleSvc,
		Executor:  executor,
		Stats:     statsSvc,
		Flags:     settingsSvc,
		Logger:    logger,
	}
	sessionHandler.Register(engine)
	pledgeHandler := &handler.PledgeHandler{Repo: store, Stats: statsSvc, Logger: logger}
	pledgeHandler.Register(engine)
	executionHandler := &handler.ExecutionHandler{Repo: store}
	executionHandler.Register(engine)
	auditHandler := &handler.AuditHandler{Repo: store}
	auditHandler.Register(engine)
	accessHandler := &handler.AccessHandler{Repo: store, Review: reviewSvc}
	accessHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.StatsRefresh, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureStatsRefresh, true) {
				return
			}
			if err := statsSvc.RefreshActive(ctx); err != nil {
				logger.Warn("cron stats refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register stats refresh failed", zap.Error(err))
		}
		if cfg.Reconciler.Enabled {
			_, err = cronRunner.Add(cfg.Cron.Reconcile, func(ctx context.Context) {
				if err := reconciler.RunOnce(ctx); err != nil {
					logger.Warn("cron reconcile failed", zap.Error(err))
				}
			})
			if err != nil {
				logger.Warn("cron register reconcile failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func initNotifier(cfg config.NotifyConfig, logger *zap.Logger) *notify.Client {
	base := strings.TrimSpace(cfg.BaseURL)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if base == "" || apiKey == "" {
		return nil
	}

	n := &notify.Client{
		BaseURL: base,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := n.Login(ctx); err != nil {
		if logger != nil {
			logger.Warn("notify login failed (notifications disabled)", zap.Error(err))
		}
		return nil
	}
	if logger != nil {
		logger.Info("notify login ok")
	}
	return n
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Actor-ID,X-Actor-Role")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
