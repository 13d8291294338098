package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment links an order to its gateway payment and refund transactions.
type Payment struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	GatewayPaymentID    string     `gorm:"column:gateway_payment_id;not null"`
	TransactionID       *string    `gorm:"column:transaction_id;index"`
	RefundTransactionID *string    `gorm:"column:refund_transaction_id"`
	AmountCentavos      int64      `gorm:"column:amount_centavos;not null"`
	RefundedCentavos    int64      `gorm:"column:refunded_centavos;not null;default:0"`
	ConfirmedAt         *time.Time `gorm:"column:confirmed_at"`
	FailedAt            *time.Time `gorm:"column:failed_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
