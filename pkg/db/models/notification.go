package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Notification is an append-only admin feed entry. Meta holds references
// such as orderId, productId, and userId.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type      enums.NotificationType `gorm:"column:type;not null;index" json:"type"`
	Message   string                 `gorm:"column:message;not null" json:"message"`
	Meta      map[string]any         `gorm:"column:meta;type:jsonb;serializer:json" json:"meta,omitempty"`
	Read      bool                   `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
