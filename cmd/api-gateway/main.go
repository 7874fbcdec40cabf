package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ams-academy-api/api/swagger"
	"github.com/noah-isme/ams-academy-api/internal/handler"
	internalmiddleware "github.com/noah-isme/ams-academy-api/internal/middleware"
	"github.com/noah-isme/ams-academy-api/internal/repository"
	"github.com/noah-isme/ams-academy-api/internal/service"
	"github.com/noah-isme/ams-academy-api/pkg/cache"
	"github.com/noah-isme/ams-academy-api/pkg/config"
	"github.com/noah-isme/ams-academy-api/pkg/database"
	"github.com/noah-isme/ams-academy-api/pkg/export"
	"github.com/noah-isme/ams-academy-api/pkg/jobs"
	"github.com/noah-isme/ams-academy-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ams-academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ams-academy-api/pkg/middleware/requestid"
	"github.com/noah-isme/ams-academy-api/pkg/storage"
)

// @title AMS Academy API
// @version 1.0.0
// @description Administration API for a music academy: students, teachers, tariffs, attendance, cash flow and payroll.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.PayrollTTL, logr, cacheRepo != nil)

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	tariffRepo := repository.NewTariffRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	backupRepo := repository.NewBackupRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		PasswordHash:      cfg.Admin.PasswordHash,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "ams-academy-api",
	})
	tariffSvc := service.NewTariffService(tariffRepo, validate, logr)
	if _, err := tariffSvc.Get(ctx); err != nil {
		logr.Fatal("failed to load tariff table", zap.Error(err))
	}
	teacherSvc := service.NewTeacherService(teacherRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, teacherRepo, cacheSvc, validate, logr)
	billingSvc := service.NewBillingService(billingRepo, tariffSvc, cacheSvc, metricsSvc, validate, logr)
	transactionSvc := service.NewTransactionService(transactionRepo, billingSvc, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, teacherRepo, cacheSvc, metricsSvc, validate, logr)
	payrollSvc := service.NewPayrollService(teacherRepo, attendanceRepo, cacheSvc, metricsSvc, cfg.Cache.PayrollTTL, logr)
	settingsSvc := service.NewSettingsService(configRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students:    studentRepo,
		Enrollments: enrollmentRepo,
		Cash:        transactionRepo,
		Teachers:    teacherRepo,
		Payroll:     payrollSvc,
		Cache:       cacheSvc,
		CacheTTL:    cfg.Cache.DashboardTTL,
		Logger:      logr,
	})
	backupSvc := service.NewBackupService(service.BackupServiceParams{
		Students:     studentRepo,
		Enrollments:  enrollmentRepo,
		Teachers:     teacherRepo,
		Attendance:   attendanceRepo,
		Transactions: transactionRepo,
		Tariffs:      tariffSvc,
		Settings:     settingsSvc,
		Restorer:     backupRepo,
		Cache:        cacheSvc,
		Logger:       logr,
	})
	adviceSvc := service.NewAdviceService(studentRepo, &http.Client{Timeout: cfg.Advice.Timeout}, service.AdviceConfig{
		Enabled:    cfg.Advice.Enabled,
		Endpoint:   cfg.Advice.Endpoint,
		APIVersion: cfg.Advice.APIVersion,
		APIKey:     cfg.Advice.APIKey,
		Model:      cfg.Advice.Model,
		Timeout:    cfg.Advice.Timeout,
	}, metricsSvc, logr)

	var reportQueue *jobs.Queue
	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare report storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		var csvRenderer *export.CSVExporter
		if cfg.Reports.SpreadsheetCSV {
			csvRenderer = export.NewSpreadsheetCSVExporter()
		} else {
			csvRenderer = export.NewCSVExporter()
		}
		exportSvc := service.NewExportService(payrollSvc, transactionRepo, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
			Settings:  settingsSvc,
		}, logr, csvRenderer, export.NewPDFExporter())
		worker := service.NewReportWorker(reportRepo, exportSvc, metricsSvc, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			OnFailure:  worker.Fail,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		reportSvc := service.NewReportService(reportRepo, teacherRepo, reportQueue, exportSvc, metricsSvc, validate, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		reportHandler = handler.NewReportHandler(reportSvc)
	} else {
		reportHandler = handler.NewReportHandler(nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	billingHandler := handler.NewBillingHandler(billingSvc)
	adviceHandler := handler.NewAdviceHandler(adviceSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	tariffHandler := handler.NewTariffHandler(tariffSvc)
	transactionHandler := handler.NewTransactionHandler(transactionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	payrollHandler := handler.NewPayrollHandler(payrollSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	backupHandler := handler.NewBackupHandler(backupSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/export/:token", reportHandler.DownloadReport)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.Use(internalmiddleware.Audit(logr))

	secured.GET("/students", studentHandler.List)
	secured.POST("/students", studentHandler.Create)
	secured.GET("/students/:id", studentHandler.Get)
	secured.PUT("/students/:id", studentHandler.Update)
	secured.DELETE("/students/:id", studentHandler.Delete)
	secured.POST("/students/:id/enrollments", billingHandler.Enroll)
	secured.DELETE("/students/:id/enrollments/:eid", billingHandler.RemoveEnrollment)
	secured.POST("/students/:id/payments", billingHandler.RecordPayment)
	secured.POST("/students/:id/advice/reengagement", adviceHandler.Reengagement)
	secured.POST("/students/:id/advice/attendance", adviceHandler.Attendance)

	secured.GET("/teachers", teacherHandler.List)
	secured.POST("/teachers", teacherHandler.Create)
	secured.GET("/teachers/:id", teacherHandler.Get)
	secured.PUT("/teachers/:id", teacherHandler.Update)
	secured.PUT("/teachers/:id/rates", teacherHandler.UpdateRates)
	secured.DELETE("/teachers/:id", teacherHandler.Delete)

	secured.GET("/tariffs", tariffHandler.Get)
	secured.GET("/tariffs/keys", tariffHandler.Keys)
	secured.POST("/tariffs/quote", tariffHandler.Quote)
	secured.PUT("/tariffs/cells", tariffHandler.UpdateCell)
	secured.POST("/tariffs/adjust", tariffHandler.Adjust)

	secured.GET("/transactions", transactionHandler.List)
	secured.POST("/transactions", transactionHandler.Create)
	secured.GET("/transactions/summary", transactionHandler.Summary)
	secured.DELETE("/transactions/:id", transactionHandler.Delete)

	secured.PUT("/attendance", attendanceHandler.Mark)
	secured.GET("/attendance", attendanceHandler.List)

	secured.GET("/payroll", payrollHandler.Summary)
	secured.GET("/payroll/teachers/:id", payrollHandler.Teacher)
	secured.GET("/dashboard", dashboardHandler.Summary)

	secured.GET("/settings", settingsHandler.Get)
	secured.PUT("/settings", settingsHandler.Update)
	secured.GET("/backup", backupHandler.Export)
	secured.POST("/backup", backupHandler.Import)

	secured.POST("/reports", reportHandler.GenerateReport)
	secured.GET("/reports/:id", reportHandler.ReportStatus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
