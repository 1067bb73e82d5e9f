package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// Notification is an in-app notice addressed to one user.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	EventID   uuid.UUID              `gorm:"column:event_id;type:uuid;not null" json:"event_id"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;not null" json:"title"`
	Message   string                 `gorm:"column:message;not null" json:"message"`
	Link      *string                `gorm:"column:link" json:"link,omitempty"`
	ReadAt    *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}
