package models

// ItemType is a row of the static game catalog, loaded by the SDE import job.
type ItemType struct {
	TypeID     int    `gorm:"primaryKey;autoIncrement:false" json:"type_id"`
	Name       string `gorm:"size:200;index" json:"name"`
	GroupID    int    `gorm:"index" json:"group_id"`
	CategoryID int    `gorm:"index" json:"category_id"`
}

func (ItemType) TableName() string { return "item_types" }
