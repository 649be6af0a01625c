package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/lottoml/lotto-engine/internal/services"
	"github.com/lottoml/lotto-engine/internal/simulation"
)

// DefaultSimulationPredictions is used when a run request omits num_predictions
const DefaultSimulationPredictions = 1000

// SimulationHandler handles Monte-Carlo simulation requests
type SimulationHandler struct {
	simulationService services.SimulationService
}

// NewSimulationHandler creates a new SimulationHandler
func NewSimulationHandler(simulationService services.SimulationService) *SimulationHandler {
	return &SimulationHandler{
		simulationService: simulationService,
	}
}

// SimulationRequest is the body of a run or job request. The upper bound is
// enforced by the engine so it reports simulation_overflow.
type SimulationRequest struct {
	NumPredictions int64   `json:"num_predictions" binding:"min=1000"`
	Seed           *uint64 `json:"seed"`
}

func bindSimulationRequest(c *gin.Context) (SimulationRequest, error) {
	req := SimulationRequest{NumPredictions: DefaultSimulationPredictions}
	if err := c.ShouldBindJSON(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			return req, invalidRequest(err)
		}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			return req, invalidRequest(err)
		}
	}
	return req, nil
}

// GetInfo handles GET /simulation/info
func (h *SimulationHandler) GetInfo(c *gin.Context) {
	info, err := h.simulationService.Info(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, info)
}

// GetStatus handles GET /simulation/status
func (h *SimulationHandler) GetStatus(c *gin.Context) {
	respondSuccess(c, h.simulationService.Status(c.Request.Context()))
}

// Run handles POST /simulation/run. The run is bound to the request
// context, so a disconnecting client cancels it.
func (h *SimulationHandler) Run(c *gin.Context) {
	req, err := bindSimulationRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.simulationService.Run(c.Request.Context(), req.NumPredictions, req.Seed)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccessWithMessage(c, res, runMessage(res))
}

func runMessage(res *simulation.Result) string {
	if res.Cancelled {
		return fmt.Sprintf("Simulation cancelled after %d of %d predictions", res.TotalPredictions, res.RequestedPredictions)
	}
	return fmt.Sprintf("Simulation of %d predictions completed", res.TotalPredictions)
}

// StartJob handles POST /simulation/jobs
func (h *SimulationHandler) StartJob(c *gin.Context) {
	req, err := bindSimulationRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	job, err := h.simulationService.StartJob(c.Request.Context(), req.NumPredictions, req.Seed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "success", "data": job})
}

// ListJobs handles GET /simulation/jobs
func (h *SimulationHandler) ListJobs(c *gin.Context) {
	respondSuccess(c, h.simulationService.ListJobs(c.Request.Context()))
}

// GetJob handles GET /simulation/jobs/:id
func (h *SimulationHandler) GetJob(c *gin.Context) {
	job, err := h.simulationService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, job)
}

// CancelJob handles DELETE /simulation/jobs/:id
func (h *SimulationHandler) CancelJob(c *gin.Context) {
	job, err := h.simulationService.CancelJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, job)
}
