package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/services"
)

// AnalysisHandler serves statistics, predictions and recommendations
type AnalysisHandler struct {
	statisticsService     services.StatisticsService
	predictionService     services.PredictionService
	recommendationService services.RecommendationService
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(
	statisticsService services.StatisticsService,
	predictionService services.PredictionService,
	recommendationService services.RecommendationService,
) *AnalysisHandler {
	return &AnalysisHandler{
		statisticsService:     statisticsService,
		predictionService:     predictionService,
		recommendationService: recommendationService,
	}
}

type statisticsQuery struct {
	Recent int `form:"recent" binding:"min=0"`
}

// GetStatistics handles GET /statistics
func (h *AnalysisHandler) GetStatistics(c *gin.Context) {
	var q statisticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, invalidRequest(err))
		return
	}
	snap, err := h.statisticsService.GetStatistics(c.Request.Context(), q.Recent)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, snap)
}

// Predict handles GET /predict
func (h *AnalysisHandler) Predict(c *gin.Context) {
	prediction, err := h.predictionService.Predict(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, prediction)
}

// Recommend handles GET /recommend. An optional seed query parameter makes
// the output reproducible.
func (h *AnalysisHandler) Recommend(c *gin.Context) {
	var seed *int64
	if raw := c.Query("seed"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, errs.New(errs.KindValidation, "seed must be an integer"))
			return
		}
		seed = &v
	}
	recs, err := h.recommendationService.Recommend(c.Request.Context(), seed)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, recs)
}
