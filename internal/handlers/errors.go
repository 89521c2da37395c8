package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/indyforge/groupindustry/pkg/response"
	"gorm.io/gorm"
)

// toAppError maps domain errors onto HTTP responses.
func toAppError(err error) *response.AppError {
	var (
		validation *services.ValidationError
		duplicate  *services.DuplicateContributionError
		transition *services.InvalidStateTransitionError
		upstream   *services.UpstreamUnavailableError
		appErr     *response.AppError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &validation):
		return response.NewBadRequest(validation.Error()).WithReason("validation_failed")
	case errors.As(err, &duplicate):
		return response.NewConflict("contribution already submitted, awaiting review").WithReason("duplicate_contribution")
	case errors.As(err, &transition):
		return response.NewConflict(transition.Error()).WithReason("invalid_state_transition")
	case errors.As(err, &upstream):
		return response.NewBadGateway(upstream.Error()).WithReason("upstream_unavailable")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return response.NewNotFound("resource not found").WithReason("not_found")
	default:
		return response.NewServerError("internal server error")
	}
}

func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 && appErr.HTTPStatus != 502 {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("[API] request failed")
	}
	response.Error(c, appErr)
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
