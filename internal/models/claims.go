package models

import "github.com/golang-jwt/jwt/v5"

// Management API permissions carried in externally issued staff tokens.
const (
	PermissionTokenIssue  = "token:issue"
	PermissionTokenRevoke = "token:revoke"
	PermissionTipRefund   = "tip:refund"
	PermissionSummaryRead = "summary:read"
	PermissionStaffManage = "staff:manage"
)

// StaffClaims are the claims of a bearer token issued by the external identity
// service. The engine only verifies the signature and reads the fields; it
// never issues tokens itself.
type StaffClaims struct {
	jwt.RegisteredClaims
	StaffID     string   `json:"staff_id"`
	BusinessID  string   `json:"business_id"`
	LocationID  string   `json:"location_id,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *StaffClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
