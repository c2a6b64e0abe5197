package errors

var (
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "tip amount must be positive",
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "illegal payment status transition",
	}
	ErrNotRefundable = &DomainError{
		Code:    "NOT_REFUNDABLE",
		Message: "tip is not eligible for refund",
	}
	ErrImmutableField = &DomainError{
		Code:    "IMMUTABLE_FIELD",
		Message: "cannot update immutable tip field",
	}
	ErrOrphanEvent = &DomainError{
		Code:    "ORPHAN_EVENT",
		Message: "webhook event matches no known payment intent",
	}
)
