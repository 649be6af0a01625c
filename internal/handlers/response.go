package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lottoml/lotto-engine/internal/errs"
	"golang.org/x/exp/slog"
)

var kindMessages = map[errs.Kind]string{
	errs.KindInvalidDraw:         "Invalid draw",
	errs.KindNotFound:            "Not found",
	errs.KindEmptyArchive:        "No draw data available",
	errs.KindInsufficientData:    "Not enough data",
	errs.KindInsufficientHistory: "Not enough history",
	errs.KindModelNotTrained:     "Models not trained",
	errs.KindTrainingInProgress:  "Training already in progress",
	errs.KindGenerationTimeout:   "Generation failed",
	errs.KindSimulationOverflow:  "Too many predictions requested",
	errs.KindValidation:          "Invalid request",
	errs.KindUnauthorized:        "Unauthorized",
	errs.KindRateLimited:         "Too many requests",
	errs.KindInternal:            "Internal server error",
}

func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func respondSuccessWithMessage(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data, "message": message})
}

// respondError maps err onto the error envelope and its HTTP status
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "kind", kind, "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"status":  "error",
		"message": kindMessages[kind],
		"detail":  errs.Detail(err),
		"kind":    kind,
	})
}

func invalidRequest(err error) error {
	return errs.New(errs.KindValidation, "invalid request: %v", err)
}

// intParam parses a path parameter that must be a positive integer
func intParam(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 1 {
		return 0, errs.New(errs.KindValidation, "%s must be a positive integer", name)
	}
	return v, nil
}
