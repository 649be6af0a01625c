package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lottoml/lotto-engine/api/routes"
	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/config"
	"github.com/lottoml/lotto-engine/internal/handlers"
	"github.com/lottoml/lotto-engine/internal/metrics"
	"github.com/lottoml/lotto-engine/internal/middleware"
	"github.com/lottoml/lotto-engine/internal/ml"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"github.com/lottoml/lotto-engine/internal/repositories/memory"
	mongorepo "github.com/lottoml/lotto-engine/internal/repositories/mongodb"
	"github.com/lottoml/lotto-engine/internal/scheduler"
	"github.com/lottoml/lotto-engine/internal/services"
	"github.com/lottoml/lotto-engine/internal/simulation"
	"github.com/lottoml/lotto-engine/pkg/lottofeed"
	"github.com/lottoml/lotto-engine/pkg/mongodb"
	"golang.org/x/exp/slog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg.LogLevel)
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	ctx := context.Background()

	var (
		drawRepo         repositories.DrawRepository
		systemConfigRepo repositories.SystemConfigRepository
		trainingRunRepo  repositories.TrainingRunRepository
	)
	if cfg.MongoDB.URI != "" {
		mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}()

		db := mongoClient.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("Failed to create indexes: %v", err)
		}
		drawRepo = mongorepo.NewDrawRepository(db)
		systemConfigRepo = mongorepo.NewSystemConfigRepository(db)
		trainingRunRepo = mongorepo.NewTrainingRunRepository(db)
	} else {
		slog.Warn("MONGODB_URI is empty, using in-memory storage")
		drawRepo = memory.NewDrawRepository()
		systemConfigRepo = memory.NewSystemConfigRepository()
		trainingRunRepo = memory.NewTrainingRunRepository()
	}

	drawArchive := archive.New(drawRepo)
	if err := drawArchive.Load(ctx); err != nil {
		log.Fatalf("Failed to load draw archive: %v", err)
	}
	metrics.SetArchiveSize(drawArchive.Snapshot().Len())

	feed := services.NewFeedAdapter(lottofeed.NewClient(lottofeed.Options{
		BaseURL:           cfg.Feed.BaseURL,
		PageURL:           cfg.Feed.PageURL,
		CurrentDrawNo:     cfg.Feed.CurrentDrawNo,
		MockAPI:           cfg.Feed.MockAPI,
		RequestsPerSecond: cfg.Feed.RequestsPerSecond,
		Timeout:           time.Duration(cfg.Feed.TimeoutSeconds) * time.Second,
	}))

	drawService := services.NewDrawService(drawArchive, feed, systemConfigRepo)
	predictionService := services.NewPredictionService(drawArchive, ml.NewEnsemble(cfg.ML.Config), trainingRunRepo)
	statusService := services.NewStatusService(drawArchive, drawService, predictionService)
	simulationService := services.NewSimulationService(drawArchive,
		simulation.NewEngine(simulation.Config{Workers: cfg.Simulation.Workers, BatchSize: cfg.Simulation.BatchSize}),
		cfg.Simulation.ReferenceDrawNo, cfg.Simulation.MaxJobs)

	if cfg.ML.TrainOnStartup && drawArchive.Snapshot().Len() > 0 {
		go func() {
			if _, err := predictionService.Train(context.Background()); err != nil {
				slog.Error("Startup training failed", "error", err)
			}
		}()
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler, cfg.ML.RetrainOnSync, drawService, predictionService)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		sched.Start()
	}

	stopCleanup := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	limiter.StartCleanup(10*time.Minute, stopCleanup)

	authService := services.NewAuthService(cfg.Admin.Username, cfg.Admin.PasswordHash, cfg.JWT.Secret,
		time.Duration(cfg.JWT.ExpiresIn)*time.Second)

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler: handlers.NewAuthHandler(authService),
		DrawHandler: handlers.NewDrawHandler(drawService),
		AnalysisHandler: handlers.NewAnalysisHandler(
			services.NewStatisticsService(drawArchive),
			predictionService,
			services.NewRecommendationService(drawArchive),
		),
		AdminHandler:      handlers.NewAdminHandler(drawService, predictionService, statusService),
		SimulationHandler: handlers.NewSimulationHandler(simulationService),
		RateLimiter:       limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	slog.Info("Server starting", "port", cfg.Server.Port, "draws", drawArchive.Snapshot().Len())

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	simulationService.Shutdown()
	close(stopCleanup)
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server exiting")
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
