package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/response"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: members}
}

// List returns the project's members
// GET /api/projects/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.memberService.List(c.Request.Context(), currentProjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, members)
}

// Invite adds a user as an invited member
// POST /api/projects/:id/members
func (h *MemberHandler) Invite(c *gin.Context) {
	var req services.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Invite(c.Request.Context(), currentProjectID(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, member)
}

// Respond accepts or declines the caller's own invitation
// POST /api/projects/:id/members/respond
func (h *MemberHandler) Respond(c *gin.Context) {
	var req services.RespondInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Respond(c.Request.Context(), currentProjectID(c), middleware.GetUserID(c), req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, member)
}
