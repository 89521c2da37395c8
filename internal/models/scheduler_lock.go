package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchedulerLock is a lease on a scheduled job so only one server instance
// runs it at a time.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// TryAcquireLease takes the named lease for holder until now+ttl. It succeeds
// when the lease is free, expired, or already held by holder.
func TryAcquireLease(db *gorm.DB, name, key, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()

	seed := SchedulerLock{LockName: name, LockKey: key, ExpiresAt: time.Unix(0, 0)}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return false, err
	}

	result := db.Model(&SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ?", name, key).
		Where("(expires_at < ? OR locked_by = ?)", now, holder).
		Updates(map[string]interface{}{
			"locked_by":  holder,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseLease gives the lease up if holder still owns it.
func ReleaseLease(db *gorm.DB, name, key, holder string) error {
	return db.Model(&SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND locked_by = ?", name, key, holder).
		Update("expires_at", time.Unix(0, 0)).Error
}
