package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/response"
)

type SaleHandler struct {
	saleService *services.SaleService
}

func NewSaleHandler(sales *services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: sales}
}

// List
// GET /api/projects/:id/sales
func (h *SaleHandler) List(c *gin.Context) {
	resp, err := h.saleService.List(c.Request.Context(), currentProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Record adds a sale; only accepted members can record
// POST /api/projects/:id/sales
func (h *SaleHandler) Record(c *gin.Context) {
	if !currentMembership(c).IsActive() {
		response.Forbidden(c, "only accepted members can record sales")
		return
	}

	var req services.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sale, err := h.saleService.Record(c.Request.Context(), currentProjectID(c), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, sale)
}
