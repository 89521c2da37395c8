package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/response"
	"gorm.io/gorm"
)

const (
	ctxProjectID  = "project_id"
	ctxMembership = "membership"
)

// ProjectAccess loads the caller's membership of the :id project. Users who
// were never invited, or declined, get a 404 so project ids don't leak.
func ProjectAccess(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseUintParam(c, "id")
		if !ok {
			c.Abort()
			return
		}

		member, err := members.GetMembership(c.Request.Context(), projectID, middleware.GetUserID(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.NotFound(c, "project not found")
			} else {
				respondError(c, err)
			}
			c.Abort()
			return
		}
		if member.Status == models.MemberStatusDeclined {
			response.NotFound(c, "project not found")
			c.Abort()
			return
		}

		c.Set(ctxProjectID, projectID)
		c.Set(ctxMembership, member)
		c.Next()
	}
}

// OwnerOnly must run after ProjectAccess.
func OwnerOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMembership(c)
		if member == nil || member.Role != models.MemberRoleOwner {
			response.Forbidden(c, "only the project owner can do this")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentProjectID(c *gin.Context) uint {
	if v, ok := c.Get(ctxProjectID); ok {
		return v.(uint)
	}
	return 0
}

func currentMembership(c *gin.Context) *models.ProjectMember {
	if v, ok := c.Get(ctxMembership); ok {
		return v.(*models.ProjectMember)
	}
	return nil
}
