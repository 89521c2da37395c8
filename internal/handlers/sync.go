package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/indyforge/groupindustry/pkg/response"
)

const maxSyncBatch = 500

type SyncHandler struct {
	queue services.TaskQueue
}

func NewSyncHandler(queue services.TaskQueue) *SyncHandler {
	return &SyncHandler{queue: queue}
}

type syncContributionsRequest struct {
	Tasks []services.AutoDetectTask `json:"tasks" binding:"required"`
}

func validateSyncTask(i int, t *services.AutoDetectTask) error {
	switch {
	case t.ProjectID == 0 || t.MemberID == 0 || t.BomItemID == 0:
		return fmt.Errorf("tasks[%d]: project_id, member_id and bom_item_id are required", i)
	case !models.IsValidContributionType(t.Type):
		return fmt.Errorf("tasks[%d]: unknown contribution type %q", i, t.Type)
	case t.Quantity <= 0:
		return fmt.Errorf("tasks[%d]: quantity must be positive", i)
	case t.EstimatedValue < 0:
		return fmt.Errorf("tasks[%d]: estimated_value must not be negative", i)
	}
	return nil
}

// SyncContributions queues work observed by external synchronization. The
// whole batch is validated before anything is enqueued.
// POST /api/sync/contributions
func (h *SyncHandler) SyncContributions(c *gin.Context) {
	var req syncContributionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(req.Tasks) == 0 || len(req.Tasks) > maxSyncBatch {
		response.BadRequest(c, fmt.Sprintf("tasks must contain between 1 and %d entries", maxSyncBatch))
		return
	}
	for i := range req.Tasks {
		if err := validateSyncTask(i, &req.Tasks[i]); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	enqueued := 0
	for i := range req.Tasks {
		task := req.Tasks[i]
		if err := h.queue.Enqueue(&task); err != nil {
			logger.Error().Err(err).Str("external_ref", task.ExternalRef).Msg("[Sync] enqueue failed")
			response.Error(c, response.NewServerError(fmt.Sprintf("enqueued %d of %d tasks", enqueued, len(req.Tasks))))
			return
		}
		enqueued++
	}

	response.Success(c, gin.H{
		"enqueued": enqueued,
		"async":    h.queue.IsAsync(),
	})
}
