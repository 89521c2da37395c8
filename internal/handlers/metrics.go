package handlers

import (
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	startTime      = time.Now()
	registerGauges sync.Once
)

// registerStateGauges exposes process, database and ledger state. Values are
// read at scrape time.
func registerStateGauges(db *gorm.DB, queue services.TaskQueue) {
	registerGauges.Do(func() {
		gauge := func(name, help string, fn func() float64) {
			promauto.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
		}

		gauge("industry_uptime_seconds", "Time since server start in seconds", func() float64 {
			return time.Since(startTime).Seconds()
		})
		gauge("industry_goroutines", "Number of active goroutines", func() float64 {
			return float64(runtime.NumGoroutine())
		})
		gauge("industry_queue_async_enabled", "Whether the async queue (Redis) is enabled (1=yes, 0=no)", func() float64 {
			if queue != nil && queue.IsAsync() {
				return 1
			}
			return 0
		})

		if db == nil {
			return
		}
		gauge("industry_db_open_connections", "Number of open DB connections", func() float64 {
			if sqlDB, err := db.DB(); err == nil {
				return float64(sqlDB.Stats().OpenConnections)
			}
			return 0
		})
		gauge("industry_contributions_pending", "Contributions awaiting owner review", func() float64 {
			var n int64
			db.Model(&models.Contribution{}).Where("status = ?", models.ContributionStatusPending).Count(&n)
			return float64(n)
		})
		gauge("industry_projects_active", "Projects that are not archived", func() float64 {
			var n int64
			db.Model(&models.Project{}).Where("status <> ?", models.ProjectStatusArchived).Count(&n)
			return float64(n)
		})
	})
}

// Metrics serves the Prometheus registry.
func Metrics(db *gorm.DB, queue services.TaskQueue) gin.HandlerFunc {
	registerStateGauges(db, queue)
	return gin.WrapH(promhttp.Handler())
}
