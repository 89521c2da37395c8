package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/response"
)

type ContributionHandler struct {
	ledger *services.ContributionLedger
}

func NewContributionHandler(ledger *services.ContributionLedger) *ContributionHandler {
	return &ContributionHandler{ledger: ledger}
}

// List returns the project's contributions, filterable by status, type,
// member and line
// GET /api/projects/:id/contributions
func (h *ContributionHandler) List(c *gin.Context) {
	var req services.ContributionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	contributions, err := h.ledger.List(c.Request.Context(), currentProjectID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, contributions)
}

// Submit records the caller's claim against a line, pending review
// POST /api/projects/:id/contributions
func (h *ContributionHandler) Submit(c *gin.Context) {
	var req services.SubmitContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	contribution, err := h.ledger.Submit(c.Request.Context(), currentMembership(c).ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, contribution)
}

// Approve
// POST /api/projects/:id/contributions/:cid/approve
func (h *ContributionHandler) Approve(c *gin.Context) {
	h.review(c, h.ledger.Approve)
}

// Reject
// POST /api/projects/:id/contributions/:cid/reject
func (h *ContributionHandler) Reject(c *gin.Context) {
	h.review(c, h.ledger.Reject)
}

type reviewFunc func(ctx context.Context, projectID, contributionID, reviewerID uint) (*models.Contribution, error)

func (h *ContributionHandler) review(c *gin.Context, fn reviewFunc) {
	contributionID, ok := parseUintParam(c, "cid")
	if !ok {
		return
	}

	contribution, err := fn(c.Request.Context(), currentProjectID(c), contributionID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, contribution)
}
