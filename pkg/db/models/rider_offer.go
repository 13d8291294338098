package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// RiderOffer is a time-boxed proposal of an order to one specific rider.
// Partial unique indexes in the schema guarantee at most one outstanding
// offered row and at most one accepted row per order.
type RiderOffer struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	RiderID         uuid.UUID         `gorm:"column:rider_id;type:uuid;not null;index"`
	Status          enums.OfferStatus `gorm:"column:status;type:rider_offer_status;not null;default:'offered'"`
	Attempt         int               `gorm:"column:attempt;not null;default:1"`
	OfferedAt       time.Time         `gorm:"column:offered_at;autoCreateTime"`
	ExpiresAt       time.Time         `gorm:"column:expires_at;not null"`
	RespondedAt     *time.Time        `gorm:"column:responded_at"`
	RejectionReason *string           `gorm:"column:rejection_reason"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
