package models

import "time"

const (
	JobGroupFinal     = "final"
	JobGroupComponent = "component"
	JobGroupBlueprint = "blueprint"

	ActivityManufacturing = "manufacturing"
	ActivityReaction      = "reaction"
	ActivityCopying       = "copying"
)

// BomItem is one bill-of-materials line: either a material to supply or a job to run.
// A project has at most one line per (type, is_job, job_group, activity).
type BomItem struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProjectID         uint      `gorm:"uniqueIndex:idx_bom_line;not null" json:"project_id"`
	TypeID            int       `gorm:"uniqueIndex:idx_bom_line;not null" json:"type_id"`
	TypeName          string    `gorm:"size:200" json:"type_name"`
	IsJob             bool      `gorm:"uniqueIndex:idx_bom_line" json:"is_job"`
	JobGroup          string    `gorm:"uniqueIndex:idx_bom_line;size:20" json:"job_group"`     // final, component, blueprint; empty for materials
	ActivityType      string    `gorm:"uniqueIndex:idx_bom_line;size:30" json:"activity_type"` // manufacturing, reaction, copying; empty for materials
	RequiredQuantity  int64     `gorm:"not null" json:"required_quantity"`                     // runs for job lines
	FulfilledQuantity int64     `gorm:"not null;default:0" json:"fulfilled_quantity"`
	EstimatedPrice    *float64  `json:"estimated_price"` // per unit; nil when no market price is known
	MELevel           int       `json:"me_level"`
	TELevel           int       `json:"te_level"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (BomItem) TableName() string { return "bom_items" }

// RemainingQuantity is never negative, over-contribution reports zero.
func (b *BomItem) RemainingQuantity() int64 {
	if b.FulfilledQuantity >= b.RequiredQuantity {
		return 0
	}
	return b.RequiredQuantity - b.FulfilledQuantity
}

// EstimatedTotal multiplies the unit price by the required quantity.
func (b *BomItem) EstimatedTotal() *float64 {
	if b.EstimatedPrice == nil {
		return nil
	}
	total := *b.EstimatedPrice * float64(b.RequiredQuantity)
	return &total
}
