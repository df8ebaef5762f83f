package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the durable audit row for a processed provider event.
// The at-most-once *claim* lives in Redis; this row is written after the
// event has been fully processed.
type WebhookEvent struct {
	ID          string         `json:"id" gorm:"primaryKey;size:64"` // provider event id
	Type        string         `json:"type" gorm:"size:64;index"`
	Payload     datatypes.JSON `json:"payload"`
	ProcessedAt time.Time      `json:"processedAt"`
}
