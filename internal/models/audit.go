package models

import "time"

// Audit logging
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `json:"user_id"` // qui a fait la modification
	EntityType string    `json:"entity_type"` // ex: "Invoice", "Quote", "TransportSlip"
	EntityID   uint      `json:"entity_id"`
	Action     string    `json:"action"` // ex: "create", "status_change", "delete"
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
