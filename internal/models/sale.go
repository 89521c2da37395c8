package models

import "time"

// Sale is a completed sale of project output. Rows are append-only.
type Sale struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"index;not null" json:"project_id"`
	TypeID     *int      `json:"type_id"`
	Quantity   int64     `json:"quantity"`
	TotalPrice float64   `gorm:"not null" json:"total_price"`
	SoldAt     time.Time `json:"sold_at"`
	RecordedBy uint      `json:"recorded_by"`
	Note       string    `gorm:"size:500" json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Sale) TableName() string { return "sales" }
