package models

import (
	"time"

	"gorm.io/gorm"
)

// SchedulerLock is a database-backed lock that keeps scheduled jobs from
// running on more than one instance. The (name, key) pair is unique, so
// the first writer wins; expired rows may be reclaimed in place.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// TryAcquireSchedulerLock claims (name, key) for owner. It returns false
// when another instance holds an unexpired claim.
func TryAcquireSchedulerLock(db *gorm.DB, name, key, owner string, ttl time.Duration) bool {
	now := time.Now()
	lock := SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  owner,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(&lock).Error; err == nil {
		return true
	}

	// Insert lost to an existing row. Reclaim it only if expired.
	res := db.Model(&SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  owner,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	return res.Error == nil && res.RowsAffected > 0
}
