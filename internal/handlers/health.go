package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/services"
	"gorm.io/gorm"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "groupindustry",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
		},
	})
}
