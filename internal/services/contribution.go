package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	submitLockTTL     = 10 * time.Second
	submitLockTimeout = 2 * time.Second
)

// ContributionLedger records member claims against BOM lines and reviews them.
type ContributionLedger struct {
	db       *gorm.DB
	industry *config.IndustryConfig
	prices   PriceProvider
	locker   *redislock.Client
	log      zerolog.Logger
}

// NewContributionLedger creates a ledger. prices and locker may be nil.
func NewContributionLedger(db *gorm.DB, industry *config.IndustryConfig, prices PriceProvider, locker *redislock.Client) *ContributionLedger {
	return &ContributionLedger{
		db:       db,
		industry: industry,
		prices:   prices,
		locker:   locker,
		log:      logger.WithModule("contribution"),
	}
}

type SubmitContributionRequest struct {
	BomItemID      uint     `json:"bom_item_id" binding:"required"`
	Type           string   `json:"type" binding:"required"`
	Quantity       int64    `json:"quantity" binding:"required"`
	EstimatedValue *float64 `json:"estimated_value"`
	Note           string   `json:"note"`
}

type ContributionListRequest struct {
	Status    string `form:"status"`
	Type      string `form:"type"`
	MemberID  uint   `form:"member_id"`
	BomItemID uint   `form:"bom_item_id"`
}

func validateSubmission(req *SubmitContributionRequest) error {
	if req.BomItemID == 0 {
		return newValidationError("bom_item_id", "is required")
	}
	if !models.IsValidContributionType(req.Type) {
		return newValidationError("type", "unknown contribution type %q", req.Type)
	}
	if req.Quantity <= 0 {
		return newValidationError("quantity", "must be positive")
	}
	if req.EstimatedValue != nil && *req.EstimatedValue < 0 {
		return newValidationError("estimated_value", "must not be negative")
	}
	return nil
}

// Submit records a manual claim as pending review.
func (l *ContributionLedger) Submit(ctx context.Context, memberID uint, req *SubmitContributionRequest) (*models.Contribution, error) {
	return l.submit(ctx, memberID, req, false)
}

// SubmitAutoDetected records work observed by synchronization. It is approved
// and verified on insert and counts toward fulfillment immediately.
func (l *ContributionLedger) SubmitAutoDetected(ctx context.Context, memberID uint, req *SubmitContributionRequest) (*models.Contribution, error) {
	return l.submit(ctx, memberID, req, true)
}

func (l *ContributionLedger) submit(ctx context.Context, memberID uint, req *SubmitContributionRequest, auto bool) (*models.Contribution, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	db := l.db.WithContext(ctx)

	var member models.ProjectMember
	if err := db.First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("member_id", "member %d does not exist", memberID)
		}
		return nil, err
	}
	var item models.BomItem
	if err := db.First(&item, req.BomItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("bom_item_id", "bom item %d does not exist", req.BomItemID)
		}
		return nil, err
	}
	if member.ProjectID != item.ProjectID {
		return nil, newValidationError("bom_item_id", "bom item belongs to another project")
	}
	if !member.IsActive() {
		return nil, newValidationError("member_id", "membership is %s", member.Status)
	}

	value, err := l.estimateValue(ctx, &item, req)
	if err != nil {
		return nil, err
	}

	if l.locker != nil {
		lock := l.obtainSubmitLock(ctx, memberID, item.ID, req.Type)
		if lock != nil {
			defer func() { _ = lock.Release(context.Background()) }()
		}
	}

	contribution := models.Contribution{
		ProjectID:      item.ProjectID,
		MemberID:       memberID,
		BomItemID:      item.ID,
		Type:           req.Type,
		Quantity:       req.Quantity,
		EstimatedValue: value,
		Status:         models.ContributionStatusPending,
		Note:           req.Note,
	}
	if auto {
		now := time.Now()
		contribution.Status = models.ContributionStatusApproved
		contribution.AutoDetected = true
		contribution.Verified = true
		contribution.ReviewedAt = &now
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Row lock on the line serializes submissions and approvals against it.
		var locked models.BomItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, item.ID).Error; err != nil {
			return err
		}

		var inFlight int64
		err := tx.Model(&models.Contribution{}).
			Where("member_id = ? AND bom_item_id = ? AND type = ? AND status IN ?",
				memberID, item.ID, req.Type,
				[]string{models.ContributionStatusPending, models.ContributionStatusApproved}).
			Count(&inFlight).Error
		if err != nil {
			return err
		}
		if inFlight > 0 {
			return &DuplicateContributionError{MemberID: memberID, BomItemID: item.ID, Type: req.Type}
		}

		if err := tx.Create(&contribution).Error; err != nil {
			return err
		}
		if auto {
			return incrementFulfilled(tx, item.ID, contribution.Quantity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordContribution(contribution.Type, contribution.Status)
	l.log.Info().
		Uint("contribution_id", contribution.ID).
		Uint("member_id", memberID).
		Uint("bom_item_id", item.ID).
		Str("type", contribution.Type).
		Int64("quantity", contribution.Quantity).
		Bool("auto_detected", auto).
		Msg("contribution recorded")

	return &contribution, nil
}

// estimateValue fills in a value when the caller didn't give one. Materials are
// priced from the market, then from the line's stored estimate; line rentals
// use the project or default rate per run. Other types have no catalog value.
func (l *ContributionLedger) estimateValue(ctx context.Context, item *models.BomItem, req *SubmitContributionRequest) (float64, error) {
	if req.EstimatedValue != nil {
		return *req.EstimatedValue, nil
	}

	switch req.Type {
	case models.ContributionTypeMaterial:
		if l.prices != nil {
			prices, err := l.prices.GetPrices(ctx, []int{item.TypeID})
			if err != nil {
				l.log.Warn().Err(err).Int("type_id", item.TypeID).Msg("pricing unavailable, using stored estimate")
			} else if p := prices[item.TypeID]; p != nil {
				return *p * float64(req.Quantity), nil
			}
		}
		if item.EstimatedPrice != nil {
			return *item.EstimatedPrice * float64(req.Quantity), nil
		}
		return 0, nil

	case models.ContributionTypeLineRental:
		var project models.Project
		if err := l.db.WithContext(ctx).Select("id", "line_rental_overrides").First(&project, item.ProjectID).Error; err != nil {
			return 0, err
		}
		if rate, ok := project.LineRentalRate(item.ActivityType); ok {
			return rate * float64(req.Quantity), nil
		}
		if l.industry != nil {
			if rate, ok := l.industry.LineRentalRate(item.ActivityType); ok {
				return rate * float64(req.Quantity), nil
			}
		}
		return 0, nil
	}
	return 0, nil
}

// obtainSubmitLock serializes submissions for one claim key across processes.
// Failing to lock is not fatal; the database transaction still decides.
func (l *ContributionLedger) obtainSubmitLock(ctx context.Context, memberID, bomItemID uint, contributionType string) *redislock.Lock {
	key := fmt.Sprintf("contribution:%d:%d:%s", memberID, bomItemID, contributionType)

	lockCtx, cancel := context.WithTimeout(ctx, submitLockTimeout)
	defer cancel()

	lock, err := l.locker.Obtain(lockCtx, key, submitLockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("could not obtain submit lock, relying on row lock")
		return nil
	}
	return lock
}

func incrementFulfilled(tx *gorm.DB, bomItemID uint, quantity int64) error {
	result := tx.Model(&models.BomItem{}).
		Where("id = ?", bomItemID).
		UpdateColumn("fulfilled_quantity", gorm.Expr("fulfilled_quantity + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Approve accepts a pending contribution and adds its quantity to the line's
// fulfillment in the same transaction.
func (l *ContributionLedger) Approve(ctx context.Context, projectID, contributionID, reviewerID uint) (*models.Contribution, error) {
	return l.review(ctx, projectID, contributionID, reviewerID, models.ContributionStatusApproved)
}

// Reject closes a pending contribution. Fulfillment is untouched and the
// member may submit again for the same line and type.
func (l *ContributionLedger) Reject(ctx context.Context, projectID, contributionID, reviewerID uint) (*models.Contribution, error) {
	return l.review(ctx, projectID, contributionID, reviewerID, models.ContributionStatusRejected)
}

func (l *ContributionLedger) review(ctx context.Context, projectID, contributionID, reviewerID uint, target string) (*models.Contribution, error) {
	var contribution models.Contribution

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND project_id = ?", contributionID, projectID).First(&contribution).Error; err != nil {
			return err
		}

		now := time.Now()
		// Compare-and-swap on status: two racing reviewers cannot both win.
		result := tx.Model(&models.Contribution{}).
			Where("id = ? AND status = ?", contribution.ID, models.ContributionStatusPending).
			Updates(map[string]interface{}{
				"status":      target,
				"reviewed_by": reviewerID,
				"reviewed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var current models.Contribution
			if err := tx.Select("id", "status").First(&current, contribution.ID).Error; err != nil {
				return err
			}
			return &InvalidStateTransitionError{Entity: "contribution", ID: contribution.ID, From: current.Status, To: target}
		}

		if target == models.ContributionStatusApproved {
			if err := incrementFulfilled(tx, contribution.BomItemID, contribution.Quantity); err != nil {
				return err
			}
		}

		contribution.Status = target
		contribution.ReviewedBy = &reviewerID
		contribution.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordContribution(contribution.Type, target)
	l.log.Info().
		Uint("contribution_id", contribution.ID).
		Uint("reviewer_id", reviewerID).
		Str("status", target).
		Msg("contribution reviewed")

	return &contribution, nil
}

// List returns the project's contributions, newest first.
func (l *ContributionLedger) List(ctx context.Context, projectID uint, req *ContributionListRequest) ([]models.Contribution, error) {
	query := l.db.WithContext(ctx).
		Preload("Member.User").
		Preload("BomItem").
		Where("project_id = ?", projectID)

	if req != nil {
		if req.Status != "" {
			query = query.Where("status = ?", req.Status)
		}
		if req.Type != "" {
			query = query.Where("type = ?", req.Type)
		}
		if req.MemberID != 0 {
			query = query.Where("member_id = ?", req.MemberID)
		}
		if req.BomItemID != 0 {
			query = query.Where("bom_item_id = ?", req.BomItemID)
		}
	}

	var contributions []models.Contribution
	err := query.Order("created_at DESC, id DESC").Find(&contributions).Error
	return contributions, err
}

func (l *ContributionLedger) GetByID(ctx context.Context, projectID, contributionID uint) (*models.Contribution, error) {
	var contribution models.Contribution
	err := l.db.WithContext(ctx).
		Preload("Member.User").
		Preload("BomItem").
		Where("id = ? AND project_id = ?", contributionID, projectID).
		First(&contribution).Error
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}
