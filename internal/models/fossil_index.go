package models

import "time"

// FossilIndex holds the queryable metadata of one fossil record. The
// JSON file on disk is the audit artifact; this row is how it is found.
type FossilIndex struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FossilID  string    `gorm:"uniqueIndex;size:64;not null" json:"fossil_id"`
	InputHash string    `gorm:"index;size:64;not null" json:"input_hash"`
	CallID    string    `gorm:"index;size:64" json:"call_id"`
	SessionID string    `gorm:"index;size:64" json:"session_id"`
	Provider  string    `gorm:"size:50" json:"provider"`
	Model     string    `gorm:"size:100" json:"model"`
	Status    string    `gorm:"size:20;index" json:"status"` // approved, rejected
	CostUSD   float64   `json:"cost_usd"`
	Path      string    `gorm:"size:500" json:"path"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (FossilIndex) TableName() string { return "fossil_index" }
