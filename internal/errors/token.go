package errors

var (
	ErrTokenNotFound = &DomainError{
		Code:    "TOKEN_NOT_FOUND",
		Message: "QR token not found",
	}
	ErrTokenInactive = &DomainError{
		Code:    "TOKEN_INACTIVE",
		Message: "QR token is not active",
	}
	ErrTokenExpired = &DomainError{
		Code:    "TOKEN_EXPIRED",
		Message: "QR token is outside its validity window",
	}
	ErrScanLimitReached = &DomainError{
		Code:    "SCAN_LIMIT_REACHED",
		Message: "QR token scan limit reached",
	}
)
