package models

import "time"

// UsageRecord is the database mirror of one call metric. The JSON usage
// file is authoritative; these rows exist for SQL reporting.
type UsageRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CallID           string    `gorm:"uniqueIndex;size:64;not null" json:"call_id"`
	SessionID        string    `gorm:"index;size:64" json:"session_id"`
	Provider         string    `gorm:"size:50" json:"provider"`
	Model            string    `gorm:"size:100" json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	DurationMS       int64     `json:"duration_ms"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `gorm:"size:500" json:"error_message,omitempty"`
	Context          string    `gorm:"size:50;index" json:"context"`
	Purpose          string    `gorm:"size:100;index" json:"purpose"`
	ValueScore       float64   `json:"value_score"`
	InputHash        string    `gorm:"size:64;index" json:"input_hash"`
	FossilID         string    `gorm:"size:64;index" json:"fossil_id"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (UsageRecord) TableName() string { return "usage_records" }
