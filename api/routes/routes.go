package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lottoml/lotto-engine/internal/config"
	"github.com/lottoml/lotto-engine/internal/handlers"
	"github.com/lottoml/lotto-engine/internal/metrics"
	"github.com/lottoml/lotto-engine/internal/middleware"
)

// HandlerDependencies holds the handlers wired into the router
type HandlerDependencies struct {
	AuthHandler       *handlers.AuthHandler
	DrawHandler       *handlers.DrawHandler
	AnalysisHandler   *handlers.AnalysisHandler
	AdminHandler      *handlers.AdminHandler
	SimulationHandler *handlers.SimulationHandler
	// RateLimiter guards the simulation write routes; nil builds one from cfg
	RateLimiter *middleware.RateLimiter
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(metrics.Middleware())

	router.GET("/health", health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", health)
		v1.POST("/auth/login", deps.AuthHandler.Login)

		results := v1.Group("/results")
		{
			results.GET("", deps.DrawHandler.ListResults)
			results.GET("/latest", deps.DrawHandler.GetLatest)
			results.GET("/:draw_no", deps.DrawHandler.GetResult)
		}

		v1.GET("/statistics", deps.AnalysisHandler.GetStatistics)
		v1.GET("/predict", deps.AnalysisHandler.Predict)
		v1.GET("/recommend", deps.AnalysisHandler.Recommend)

		adminAuth := middleware.AdminAuthMiddleware(cfg)
		registerAdmin(v1.Group("/admin", adminAuth), deps.AdminHandler)
		// Unprefixed paths used by existing clients
		registerAdmin(v1.Group("", adminAuth), deps.AdminHandler)

		sim := v1.Group("/simulation")
		{
			sim.GET("/info", deps.SimulationHandler.GetInfo)
			sim.GET("/status", deps.SimulationHandler.GetStatus)
			sim.POST("/run", limiter.Handler(), deps.SimulationHandler.Run)
			sim.POST("/jobs", limiter.Handler(), deps.SimulationHandler.StartJob)
			sim.GET("/jobs", deps.SimulationHandler.ListJobs)
			sim.GET("/jobs/:id", deps.SimulationHandler.GetJob)
			sim.DELETE("/jobs/:id", deps.SimulationHandler.CancelJob)
		}
	}

	return router
}

func registerAdmin(g *gin.RouterGroup, h *handlers.AdminHandler) {
	g.POST("/sync", h.Sync)
	g.POST("/sync/full", h.SyncFull)
	g.POST("/train", h.Train)
	g.POST("/import", h.Import)
	g.GET("/status", h.GetStatus)
	g.GET("/training-runs", h.TrainingRuns)
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
