package models

import "time"

const (
	ContributionTypeMaterial   = "material"
	ContributionTypeJobInstall = "jobInstall"
	ContributionTypeBPC        = "bpc"
	ContributionTypeLineRental = "lineRental"

	ContributionStatusPending  = "pending"
	ContributionStatusApproved = "approved"
	ContributionStatusRejected = "rejected"
)

// ContributionTypes lists every accepted contribution type in display order.
var ContributionTypes = []string{
	ContributionTypeMaterial,
	ContributionTypeJobInstall,
	ContributionTypeBPC,
	ContributionTypeLineRental,
}

// IsValidContributionType reports whether t is a known contribution type.
func IsValidContributionType(t string) bool {
	for _, ct := range ContributionTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Contribution is a member's claim against one BOM line.
type Contribution struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ProjectID      uint           `gorm:"index;not null" json:"project_id"`
	MemberID       uint           `gorm:"index:idx_contribution_claim;not null" json:"member_id"`
	Member         *ProjectMember `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	BomItemID      uint           `gorm:"index:idx_contribution_claim;not null" json:"bom_item_id"`
	BomItem        *BomItem       `gorm:"foreignKey:BomItemID" json:"bom_item,omitempty"`
	Type           string         `gorm:"index:idx_contribution_claim;size:20;not null" json:"type"` // material, jobInstall, bpc, lineRental
	Quantity       int64          `gorm:"not null" json:"quantity"`
	EstimatedValue float64        `json:"estimated_value"`
	Status         string         `gorm:"size:20;not null;index" json:"status"` // pending, approved, rejected
	AutoDetected   bool           `gorm:"default:false" json:"auto_detected"`
	Verified       bool           `gorm:"default:false" json:"verified"`
	ReviewedBy     *uint          `json:"reviewed_by"`
	ReviewedAt     *time.Time     `json:"reviewed_at"`
	Note           string         `gorm:"type:text" json:"note"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Contribution) TableName() string { return "contributions" }
