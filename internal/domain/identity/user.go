package identity

import (
	"fmt"
	"time"

	"corebank/internal/pkg/apperrors"
)

type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleAuditor    Role = "Auditor"
	RoleCustomer   Role = "Customer"
)

// ParseRole rejects anything outside the closed role set. Tokens and request
// payloads always pass through here before a Role enters the domain.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleAdmin, RoleAuditor, RoleCustomer:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidArgument, raw)
}

func (r Role) CodePrefix() string {
	switch r {
	case RoleSuperAdmin:
		return "SRU"
	case RoleAdmin:
		return "ADM"
	case RoleAuditor:
		return "AUD"
	default:
		return "CST"
	}
}

func (r Role) IsBackOffice() bool {
	return r == RoleAdmin || r == RoleSuperAdmin || r == RoleAuditor
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
)

type User struct {
	ID           int64
	Code         string
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	FirstName    string
	LastName     string
	Gender       string
	DateOfBirth  *time.Time
	Role         Role
	Status       UserStatus
	LastActivity *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	UserID int64
	Code   string
	Email  string
	Name   string
	Role   Role
}
