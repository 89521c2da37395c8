package services

import (
	"context"
	"errors"

	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/logger"
	"gorm.io/gorm"
)

type MemberService struct {
	db *gorm.DB
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

type InviteMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type RespondInviteRequest struct {
	Accept bool `json:"accept"`
}

// Invite adds a user to the project as an invited member.
func (s *MemberService) Invite(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("user_id", "user %d does not exist", userID)
		}
		return nil, err
	}

	var existing models.ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&existing).Error
	if err == nil {
		return nil, newValidationError("user_id", "user is already a member of this project (%s)", existing.Status)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      models.MemberRoleMember,
		Status:    models.MemberStatusInvited,
	}
	if err := db.Create(&member).Error; err != nil {
		return nil, err
	}
	member.User = &user

	logger.Infof("[Member] Invited user %d to project %d", userID, projectID)
	return &member, nil
}

// Respond accepts or declines a pending invitation.
func (s *MemberService) Respond(ctx context.Context, projectID, userID uint, accept bool) (*models.ProjectMember, error) {
	target := models.MemberStatusDeclined
	if accept {
		target = models.MemberStatusAccepted
	}

	var member models.ProjectMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
			return err
		}
		result := tx.Model(&models.ProjectMember{}).
			Where("id = ? AND status = ?", member.ID, models.MemberStatusInvited).
			Update("status", target)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &InvalidStateTransitionError{Entity: "membership", ID: member.ID, From: member.Status, To: target}
		}
		member.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// List returns the project's members with their accounts, owner first.
func (s *MemberService) List(ctx context.Context, projectID uint) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("CASE WHEN role = 'owner' THEN 0 ELSE 1 END, id ASC").
		Find(&members).Error
	return members, err
}

// GetMembership returns the user's membership row, or gorm.ErrRecordNotFound.
func (s *MemberService) GetMembership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := s.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *MemberService) IsOwner(ctx context.Context, projectID, userID uint) bool {
	member, err := s.GetMembership(ctx, projectID, userID)
	if err != nil {
		return false
	}
	return member.Role == models.MemberRoleOwner
}
