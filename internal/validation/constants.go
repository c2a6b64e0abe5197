package validation

const (
	// Amount limits, major units
	MinTipAmount = 0.01
	MaxTipAmount = 1000.00

	// String lengths
	MaxCustomerNameLength = 200
	MaxMessageLength      = 500
	MaxIdempotencyKeyLen  = 255
)
