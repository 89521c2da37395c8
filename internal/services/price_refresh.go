package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	priceRefreshTimeout = 2 * time.Minute
	priceRefreshLease   = "price_refresh"
)

// PriceRefreshService re-prices material lines of live projects so estimates
// don't drift too far from the market.
type PriceRefreshService struct {
	db            *gorm.DB
	prices        PriceProvider
	cronScheduler *cron.Cron
	cronSpec      string
	holder        string
}

func NewPriceRefreshService(db *gorm.DB, prices PriceProvider, cronSpec string) *PriceRefreshService {
	host, _ := os.Hostname()
	return &PriceRefreshService{
		db:       db,
		prices:   prices,
		cronSpec: cronSpec,
		holder:   fmt.Sprintf("%s:%d", host, os.Getpid()),
	}
}

// StartScheduler registers the refresh job. An empty schedule disables it.
func (s *PriceRefreshService) StartScheduler() error {
	if s.cronSpec == "" {
		logger.Infof("[PriceRefresh] Scheduler disabled")
		return nil
	}

	s.cronScheduler = cron.New()
	if _, err := s.cronScheduler.AddFunc(s.cronSpec, s.runScheduled); err != nil {
		return err
	}
	s.cronScheduler.Start()
	logger.Infof("[PriceRefresh] Scheduler started (cron: %s)", s.cronSpec)
	return nil
}

func (s *PriceRefreshService) StopScheduler() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

// runScheduled refreshes prices if this instance wins the lease; other
// instances skip the tick.
func (s *PriceRefreshService) runScheduled() {
	acquired, err := models.TryAcquireLease(s.db, priceRefreshLease, "all", s.holder, priceRefreshTimeout)
	if err != nil {
		logger.Warn().Err(err).Msg("[PriceRefresh] could not take lease")
		return
	}
	if !acquired {
		logger.Debug().Msg("[PriceRefresh] another instance holds the lease, skipping")
		return
	}
	defer func() {
		if err := models.ReleaseLease(s.db, priceRefreshLease, "all", s.holder); err != nil {
			logger.Warn().Err(err).Msg("[PriceRefresh] could not release lease")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), priceRefreshTimeout)
	defer cancel()

	updated, err := s.RefreshAll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("[PriceRefresh] scheduled refresh failed")
		return
	}
	logger.Infof("[PriceRefresh] Updated %d material lines", updated)
}

// RefreshAll re-prices the material lines of every draft or published project.
func (s *PriceRefreshService) RefreshAll(ctx context.Context) (int64, error) {
	var projectIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("status <> ?", models.ProjectStatusArchived).
		Pluck("id", &projectIDs).Error; err != nil {
		return 0, err
	}
	return s.refresh(ctx, projectIDs)
}

// RefreshProject re-prices one project's material lines.
func (s *PriceRefreshService) RefreshProject(ctx context.Context, projectID uint) (int64, error) {
	if err := s.db.WithContext(ctx).Select("id").First(&models.Project{}, projectID).Error; err != nil {
		return 0, err
	}
	return s.refresh(ctx, []uint{projectID})
}

// refresh prices every material type of the given projects with one batch
// call and only overwrites lines whose new price is known.
func (s *PriceRefreshService) refresh(ctx context.Context, projectIDs []uint) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	var typeIDs []int
	if err := s.db.WithContext(ctx).Model(&models.BomItem{}).
		Where("project_id IN ? AND is_job = ?", projectIDs, false).
		Distinct("type_id").
		Order("type_id").
		Pluck("type_id", &typeIDs).Error; err != nil {
		return 0, err
	}
	if len(typeIDs) == 0 {
		return 0, nil
	}

	prices, err := s.prices.GetPrices(ctx, typeIDs)
	if err != nil {
		return 0, err
	}

	var updated int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range typeIDs {
			p := prices[id]
			if p == nil {
				continue
			}
			result := tx.Model(&models.BomItem{}).
				Where("project_id IN ? AND is_job = ? AND type_id = ?", projectIDs, false, id).
				Update("estimated_price", *p)
			if result.Error != nil {
				return result.Error
			}
			updated += result.RowsAffected
		}
		return nil
	})
	return updated, err
}
