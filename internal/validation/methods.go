package validation

import (
	"github.com/shopspring/decimal"
)

// ScanRequest is the customer-facing scan payload.
type ScanRequest struct {
	Token          string          `json:"token"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email"`
	Message        string          `json:"message"`
	IdempotencyKey string          `json:"-"`
}

// Scan validates a tip scan request
func (v *Validator) Scan(req *ScanRequest) {
	v.Required("token", req.Token)
	v.Required("idempotency_key", req.IdempotencyKey)
	v.MaxLength("idempotency_key", req.IdempotencyKey, MaxIdempotencyKeyLen)

	amount, _ := req.Amount.Float64()
	v.Check(req.Amount.IsPositive(), "amount", "must be greater than zero")
	v.Check(amount <= MaxTipAmount, "amount", "exceeds the maximum tip amount")
	v.Check(req.Amount.Exponent() >= -2, "amount", "must have at most two decimal places")

	if req.Currency != "" {
		v.Check(len(req.Currency) == 3, "currency", "must be a 3-letter code")
	}
	if req.CustomerEmail != "" {
		v.Email("customer_email", req.CustomerEmail)
	}
	v.MaxLength("customer_name", req.CustomerName, MaxCustomerNameLength)
	v.MaxLength("message", req.Message, MaxMessageLength)
}
