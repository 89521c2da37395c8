package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	priceRefresh   *services.PriceRefreshService
}

func NewProjectHandler(projects *services.ProjectService, priceRefresh *services.PriceRefreshService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projects,
		priceRefresh:   priceRefresh,
	}
}

// List returns the caller's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.ListForUser(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Create builds the bill of materials and stores the project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, project)
}

// GetByID returns a project with its requested items
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	project, err := h.projectService.GetByID(c.Request.Context(), currentProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, project)
}

// GetBOM returns material and job lines with fulfillment
// GET /api/projects/:id/bom
func (h *ProjectHandler) GetBOM(c *gin.Context) {
	view, err := h.projectService.GetBOM(c.Request.Context(), currentProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, view)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus publishes or archives a project
// PUT /api/projects/:id/status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	projectID := currentProjectID(c)
	if err := h.projectService.UpdateStatus(c.Request.Context(), projectID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"project_id": projectID, "status": req.Status})
}

// RefreshPrices re-prices the project's material lines now
// POST /api/projects/:id/prices/refresh
func (h *ProjectHandler) RefreshPrices(c *gin.Context) {
	updated, err := h.priceRefresh.RefreshProject(c.Request.Context(), currentProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"updated": updated})
}
