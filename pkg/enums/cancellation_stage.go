package enums

// CancellationStage buckets the pre-cancellation order status used to price a refund.
type CancellationStage string

const (
	StagePreConfirmation CancellationStage = "pre_confirmation"
	StagePreparation     CancellationStage = "preparation"
	StagePreTransit      CancellationStage = "pre_transit"
	StageRequiresDispute CancellationStage = "requires_dispute"
	StageCancelled       CancellationStage = "cancelled"
	StageUnknown         CancellationStage = "unknown"
)

var validCancellationStages = []CancellationStage{
	StagePreConfirmation,
	StagePreparation,
	StagePreTransit,
	StageRequiresDispute,
	StageCancelled,
	StageUnknown,
}

// String implements fmt.Stringer.
func (s CancellationStage) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CancellationStage.
func (s CancellationStage) IsValid() bool {
	for _, candidate := range validCancellationStages {
		if candidate == s {
			return true
		}
	}
	return false
}
