package domain

import (
	"strings"
	"time"
)

// StaffRole enumerates operator roles. Admin is a superset: any operation
// open to STAFF is open to ADMIN as well.
type StaffRole string

const (
	StaffRoleStaff StaffRole = "STAFF"
	StaffRoleAdmin StaffRole = "ADMIN"
)

// ParseStaffRole maps request values to a role, case-insensitively.
func ParseStaffRole(value string) (StaffRole, bool) {
	switch StaffRole(strings.ToUpper(strings.TrimSpace(value))) {
	case StaffRoleStaff:
		return StaffRoleStaff, true
	case StaffRoleAdmin:
		return StaffRoleAdmin, true
	default:
		return "", false
	}
}

// AccountStatus enumerates lifecycle states for staff accounts.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "PENDING"
	AccountStatusApproved AccountStatus = "APPROVED"
	AccountStatusDisabled AccountStatus = "DISABLED"
	AccountStatusRejected AccountStatus = "REJECTED"
	AccountStatusExpired  AccountStatus = "EXPIRED"
)

// ParseAccountStatus maps request values to a status, case-insensitively.
func ParseAccountStatus(value string) (AccountStatus, bool) {
	status := AccountStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case AccountStatusPending, AccountStatusApproved, AccountStatusDisabled, AccountStatusRejected, AccountStatusExpired:
		return status, true
	default:
		return "", false
	}
}

// ResetTokenPrefix marks the otp field as holding a password-reset token
// rather than a login code. The two uses are mutually exclusive.
const ResetTokenPrefix = "RESET:"

// DayURLs maps a weekday (Sunday=0 .. Saturday=6) to the redirect URL
// handed to a seller who logs in on that day.
type DayURLs map[time.Weekday]string

// StaffAccount models a raffle seller or administrator.
type StaffAccount struct {
	ID           string
	Email        string // stored normalized; see NormalizeEmail
	Name         string
	PasswordHash string
	Role         StaffRole
	Status       AccountStatus
	Active       bool
	ValidityDays int
	OTP          string // 6-digit code or RESET:<token>; empty when unset
	OTPExpiry    *time.Time
	DayURLs      DayURLs
	Version      int
	CreatedAt    time.Time // reset on approval; start of the validity window
	UpdatedAt    time.Time
}

// NormalizeEmail lowers and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidUntil returns the end of the account's validity window.
func (a *StaffAccount) ValidUntil() time.Time {
	return a.CreatedAt.AddDate(0, 0, a.ValidityDays)
}

// HasRole reports whether the account satisfies the required role.
func (a *StaffAccount) HasRole(required StaffRole) bool {
	return a.Role == required || a.Role == StaffRoleAdmin
}

// ResetToken returns the pending reset token, or "" when the otp field
// holds a login code or nothing.
func (a *StaffAccount) ResetToken() string {
	if !strings.HasPrefix(a.OTP, ResetTokenPrefix) {
		return ""
	}
	return strings.TrimPrefix(a.OTP, ResetTokenPrefix)
}
