package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProjectStatusDraft     = "draft"
	ProjectStatusPublished = "published"
	ProjectStatusArchived  = "archived"
)

// Project is a group manufacturing plan. It owns its items, BOM lines,
// members, contributions and sales.
type Project struct {
	ID                  uint               `gorm:"primaryKey" json:"id"`
	OwnerID             uint               `gorm:"index;not null" json:"owner_id"`
	Owner               *User              `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Name                string             `gorm:"size:200;not null" json:"name"`
	ContainerName       string             `gorm:"size:200" json:"container_name"` // where materials are staged
	BrokerFeePercent    float64            `json:"broker_fee_percent"`
	SalesTaxPercent     float64            `json:"sales_tax_percent"`
	LineRentalOverrides map[string]float64 `gorm:"type:text;serializer:json" json:"line_rental_overrides"` // activity -> ISK per run
	BlacklistTypeIDs    []int              `gorm:"type:text;serializer:json" json:"blacklist_type_ids"`
	BlacklistGroupIDs   []int              `gorm:"type:text;serializer:json" json:"blacklist_group_ids"`
	BlacklistCategories []int              `gorm:"type:text;serializer:json" json:"blacklist_category_ids"`
	Status              string             `gorm:"size:20;default:draft;index" json:"status"` // draft, published, archived
	Items               []ProjectItem      `gorm:"foreignKey:ProjectID" json:"items,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	DeletedAt           gorm.DeletedAt     `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }

// LineRentalRate returns the project's override for an activity, if any.
func (p *Project) LineRentalRate(activity string) (float64, bool) {
	if p.LineRentalOverrides == nil {
		return 0, false
	}
	rate, ok := p.LineRentalOverrides[activity]
	return rate, ok
}

// ProjectItem is one requested end product. Rows are never edited after creation.
type ProjectItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index;not null" json:"project_id"`
	TypeID    int       `gorm:"not null" json:"type_id"`
	TypeName  string    `gorm:"size:200" json:"type_name"`
	MELevel   int       `json:"me_level"`
	TELevel   int       `json:"te_level"`
	Runs      int64     `gorm:"not null" json:"runs"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectItem) TableName() string { return "project_items" }
