package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// Refund records a cancellation or dispute payout. A partial unique index keeps
// at most one non-terminal refund per order.
type Refund struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID        uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	AmountCentavos    int64                   `gorm:"column:amount_centavos;not null"`
	Percentage        int                     `gorm:"column:percentage;not null"`
	CancellationStage enums.CancellationStage `gorm:"column:cancellation_stage;type:cancellation_stage;not null"`
	Status            enums.RefundStatus      `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	InitiatedBy       uuid.UUID               `gorm:"column:initiated_by;type:uuid;not null"`
	ApprovedBy        *uuid.UUID              `gorm:"column:approved_by;type:uuid"`
	RejectedBy        *uuid.UUID              `gorm:"column:rejected_by;type:uuid"`
	Notes             *string                 `gorm:"column:notes"`
	Metadata          json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
