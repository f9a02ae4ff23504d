package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/nixflow/repair-tracker/internal/config"
	"github.com/nixflow/repair-tracker/internal/database"
	"github.com/nixflow/repair-tracker/internal/handler"
	"github.com/nixflow/repair-tracker/internal/middleware"
	"github.com/nixflow/repair-tracker/internal/queue"
	"github.com/nixflow/repair-tracker/internal/repository"
	"github.com/nixflow/repair-tracker/internal/router"
	"github.com/nixflow/repair-tracker/internal/service"
	"github.com/nixflow/repair-tracker/internal/upload"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	images, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		logrus.WithError(err).Fatal("upload directory unavailable")
	}

	repairs := repository.NewRepairRepo(db)
	users := repository.NewUserRepo(db)

	repairSvc := service.NewRepairService(
		repairs, images, service.NewIDGenerator(repairs),
		cfg.QRCodeBase, cfg.TrackingBase, cfg.WebhookOn,
	)
	reportSvc := service.NewReportService(repairs)
	authSvc := service.NewAuthService(users, cfg.JWTSecret, cfg.JWTTTLHours)

	if cfg.WebhookOn && cfg.WebhookURL != "" {
		go func() {
			if err := queue.StartWebhookConsumer(cfg.WebhookURL); err != nil {
				logrus.WithError(err).Error("webhook consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB)))

	var loginLimiter, trackingCache echo.MiddlewareFunc
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	if rlCfg.Enabled || cacheCfg.Enabled {
		rdb := config.NewRedisClient()
		if rlCfg.Enabled {
			loginLimiter = middleware.NewTokenBucket(rlCfg, rdb)
		}
		if cacheCfg.Enabled {
			trackingCache = middleware.NewRedisCache(cacheCfg, rdb)
		}
	}

	router.RegisterSystem(e, handler.NewHealthHandler(db), cfg.UploadDir)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), cfg.JWTSecret, loginLimiter)
	router.RegisterRepairs(e, handler.NewRepairHandler(repairSvc, reportSvc), cfg.JWTSecret, trackingCache)

	addr := ":" + cfg.Port
	logrus.Infof("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		logrus.Fatal(err)
	}
}
