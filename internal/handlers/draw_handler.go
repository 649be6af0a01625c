package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/services"
)

// DrawHandler handles draw result requests
type DrawHandler struct {
	drawService services.DrawService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(drawService services.DrawService) *DrawHandler {
	return &DrawHandler{
		drawService: drawService,
	}
}

type listResultsQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Sort     string `form:"sort,default=desc" binding:"oneof=asc desc"`
	FromDraw int    `form:"from_draw" binding:"omitempty,min=1"`
	ToDraw   int    `form:"to_draw" binding:"omitempty,min=1"`
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ListResults handles GET /results
func (h *DrawHandler) ListResults(c *gin.Context) {
	var q listResultsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, invalidRequest(err))
		return
	}

	page, err := h.drawService.ListResults(c.Request.Context(), archive.ListQuery{
		Page:     q.Page,
		Limit:    q.Limit,
		Sort:     q.Sort,
		FromDraw: q.FromDraw,
		ToDraw:   q.ToDraw,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"results": page.Results,
		"pagination": pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// GetLatest handles GET /results/latest
func (h *DrawHandler) GetLatest(c *gin.Context) {
	draw, err := h.drawService.GetLatest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, draw)
}

// GetResult handles GET /results/:draw_no
func (h *DrawHandler) GetResult(c *gin.Context) {
	drawNo, err := intParam(c, "draw_no")
	if err != nil {
		respondError(c, err)
		return
	}
	draw, err := h.drawService.GetResult(c.Request.Context(), drawNo)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, draw)
}
