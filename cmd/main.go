package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	redisclient "github.com/miyahealth/miya-backend/internal/clients/redis"
	"github.com/miyahealth/miya-backend/internal/db"
	"github.com/miyahealth/miya-backend/internal/handlers"
	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/observability"
	"github.com/miyahealth/miya-backend/internal/repos"
	"github.com/miyahealth/miya-backend/internal/server"
	"github.com/miyahealth/miya-backend/internal/services"
	"github.com/miyahealth/miya-backend/internal/utils"
	"github.com/miyahealth/miya-backend/internal/vitality"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "miya-backend",
		Environment: utils.GetEnv("APP_ENV", "development", nil),
		Version:     utils.GetEnv("APP_VERSION", "dev", nil),
	})
	defer func() { _ = shutdownOTel(ctx) }()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	dailyMetricRepo := repos.NewDailyMetricRepo(thePG, log)
	exerciseRepo := repos.NewExerciseSessionRepo(thePG, log)
	caregiverRepo := repos.NewCaregiverLinkRepo(thePG, log)
	episodeRepo := repos.NewPatternAlertEpisodeRepo(thePG, log)
	notificationRepo := repos.NewNotificationRepo(thePG, log)

	// Alert bus (optional: notifications stay durable in Postgres without it)
	var alertBus redisclient.AlertBus
	if os.Getenv("REDIS_ADDR") != "" {
		alertBus, err = redisclient.NewAlertBus(log)
		if err != nil {
			log.Warn("Could not init alert bus, continuing without it", "error", err)
			alertBus = nil
		}
	} else {
		log.Info("REDIS_ADDR not set, alert bus disabled")
	}

	// Engine configuration
	thresholds := vitality.DefaultThresholds()
	if path := utils.GetEnv("THRESHOLDS_FILE", "", log); path != "" {
		thresholds, err = vitality.LoadThresholds(path)
		if err != nil {
			log.Error("Could not load thresholds file", "path", path, "error", err)
			os.Exit(1)
		}
	}
	alertCfg := services.AlertConfig{
		ShadowMode:         utils.GetEnvAsBool("SHADOW_MODE", true, log),
		ResolutionStreak:   utils.GetEnvAsInt("RESOLUTION_STREAK", vitality.DefaultResolutionStreak, log),
		RecoveryBandPoints: utils.GetEnvAsFloat("RECOVERY_BAND_POINTS", vitality.DefaultRecoveryBandPoints, log),
		Thresholds:         thresholds,
	}
	if alertCfg.ShadowMode {
		log.Warn("Shadow mode is ON: notifications will be suppressed")
	}

	// Services
	log.Info("Setting up services from main...")
	notifier := services.NewAlertNotifier(thePG, log, caregiverRepo, notificationRepo, alertBus)
	alertService := services.NewPatternAlertService(thePG, log, alertCfg, dailyMetricRepo, exerciseRepo, episodeRepo, notifier)
	ingestService := services.NewMetricIngestService(thePG, log, dailyMetricRepo, exerciseRepo, alertService)

	sweepConcurrency := utils.GetEnvAsInt("SWEEP_CONCURRENCY", 4, log)
	evalTimeout := time.Duration(utils.GetEnvAsInt("EVAL_TIMEOUT_SECONDS", 30, log)) * time.Second
	sweepInterval := time.Duration(utils.GetEnvAsInt("SWEEP_INTERVAL_MINUTES", 0, log)) * time.Minute
	sweepService := services.NewSweepService(log, userRepo, alertService, sweepConcurrency, evalTimeout, sweepInterval)
	sweepService.Start(ctx)

	// Handlers
	log.Info("Setting up handlers from main...")
	metricHandler := handlers.NewMetricHandler(log, ingestService)
	alertHandler := handlers.NewAlertHandler(log, alertService, sweepService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		MetricHandler: metricHandler,
		AlertHandler:  alertHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
