package models

import (
	"time"

	"github.com/google/uuid"
)

// Rider is an independent courier profile as seen by the dispatcher.
type Rider struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string     `gorm:"column:name;not null"`
	Online           bool       `gorm:"column:online;not null;default:false"`
	Verified         bool       `gorm:"column:verified;not null;default:false"`
	Rating           float64    `gorm:"column:rating;not null;default:0"`
	ActiveOrderCount int        `gorm:"column:active_order_count;not null;default:0"`
	Lat              float64    `gorm:"column:lat;not null;default:0"`
	Lng              float64    `gorm:"column:lng;not null;default:0"`
	LastSeenAt       *time.Time `gorm:"column:last_seen_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
