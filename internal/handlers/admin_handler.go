package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/services"
	"github.com/lottoml/lotto-engine/internal/utils"
	"golang.org/x/exp/slog"
)

// AdminHandler handles data maintenance and model management requests
type AdminHandler struct {
	drawService       services.DrawService
	predictionService services.PredictionService
	statusService     services.StatusService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	drawService services.DrawService,
	predictionService services.PredictionService,
	statusService services.StatusService,
) *AdminHandler {
	return &AdminHandler{
		drawService:       drawService,
		predictionService: predictionService,
		statusService:     statusService,
	}
}

// Sync handles POST /admin/sync
func (h *AdminHandler) Sync(c *gin.Context) {
	h.sync(c, archive.SyncIncremental)
}

// SyncFull handles POST /admin/sync/full
func (h *AdminHandler) SyncFull(c *gin.Context) {
	h.sync(c, archive.SyncFull)
}

func (h *AdminHandler) sync(c *gin.Context, mode archive.SyncMode) {
	res, err := h.drawService.Sync(c.Request.Context(), mode)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, res)
}

// Train handles POST /admin/train
func (h *AdminHandler) Train(c *gin.Context) {
	report, err := h.predictionService.Train(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, report)
}

// GetStatus handles GET /admin/status
func (h *AdminHandler) GetStatus(c *gin.Context) {
	status, err := h.statusService.GetStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, status)
}

type trainingRunsQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// TrainingRuns handles GET /admin/training-runs
func (h *AdminHandler) TrainingRuns(c *gin.Context) {
	var q trainingRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, invalidRequest(err))
		return
	}
	runs, err := h.predictionService.TrainingRuns(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, runs)
}

// Import handles POST /admin/import with a multipart "file" CSV upload
func (h *AdminHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, errs.New(errs.KindValidation, "a CSV file is required in the \"file\" field"))
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	parsed, err := utils.ParseDrawsCSV(f)
	if err != nil {
		respondError(c, errs.Wrap(errs.KindValidation, err, err.Error()))
		return
	}
	imported, err := h.drawService.Import(c.Request.Context(), parsed.Draws)
	if err != nil {
		respondError(c, err)
		return
	}
	slog.Info("CSV import finished", "file", header.Filename, "rows", parsed.TotalRows,
		"imported", imported, "skipped", parsed.Skipped)

	respondSuccess(c, gin.H{
		"total_rows":     parsed.TotalRows,
		"imported_count": imported,
		"skipped":        parsed.Skipped,
		"errors":         parsed.Errors,
	})
}
