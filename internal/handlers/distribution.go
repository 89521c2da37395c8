package handlers

import (
	"bytes"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/indyforge/groupindustry/pkg/response"
	"github.com/xuri/excelize/v2"
)

type DistributionHandler struct {
	distribution *services.DistributionService
	exports      *services.ExportService
}

func NewDistributionHandler(distribution *services.DistributionService, exports *services.ExportService) *DistributionHandler {
	return &DistributionHandler{distribution: distribution, exports: exports}
}

// Get computes the payout table from approved contributions and sales
// GET /api/projects/:id/distribution
func (h *DistributionHandler) Get(c *gin.Context) {
	result, err := h.distribution.Calculate(c.Request.Context(), currentProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// Export
// GET /api/projects/:id/distribution/export
func (h *DistributionHandler) Export(c *gin.Context) {
	book, filename, err := h.exports.ExportDistribution(c.Request.Context(), currentProjectID(c))
	sendWorkbook(c, book, filename, err)
}

// ExportBOM
// GET /api/projects/:id/bom/export
func (h *DistributionHandler) ExportBOM(c *gin.Context) {
	book, filename, err := h.exports.ExportBOM(c.Request.Context(), currentProjectID(c))
	sendWorkbook(c, book, filename, err)
}

func sendWorkbook(c *gin.Context, book *excelize.File, filename string, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := book.Close(); err != nil {
			logger.Warn().Err(err).Msg("[Export] close workbook")
		}
	}()

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		respondError(c, err)
		return
	}
	response.File(c, filename, services.XLSXContentType, buf.Bytes())
}
