package models

import (
	"time"
)

const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"

	MemberStatusInvited  = "invited"
	MemberStatusAccepted = "accepted"
	MemberStatusDeclined = "declined"
)

// ProjectMember represents a user's membership and role within a project.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:20;default:member" json:"role"`    // owner, member
	Status    string    `gorm:"size:20;default:invited" json:"status"` // invited, accepted, declined
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

// IsActive reports whether the member may contribute.
func (m *ProjectMember) IsActive() bool {
	return m.Status == MemberStatusAccepted
}
