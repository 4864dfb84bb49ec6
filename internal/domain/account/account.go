package account

import (
	"fmt"
	"math/rand"
	"time"

	"corebank/internal/pkg/apperrors"
)

type AccountType string

const (
	TypeSavings      AccountType = "Savings"
	TypeCurrent      AccountType = "Current"
	TypeFixedDeposit AccountType = "FixedDeposit"
)

func ParseAccountType(raw string) (AccountType, error) {
	switch AccountType(raw) {
	case TypeSavings, TypeCurrent, TypeFixedDeposit:
		return AccountType(raw), nil
	}
	return "", fmt.Errorf("%w: unknown account type %q", apperrors.ErrInvalidArgument, raw)
}

// MinimumOpeningDeposit is 1000 for savings accounts and 5000 otherwise.
func (t AccountType) MinimumOpeningDeposit() float64 {
	if t == TypeSavings {
		return 1000
	}
	return 5000
}

type AccountStatus string

const (
	StatusActive  AccountStatus = "Active"
	StatusDormant AccountStatus = "Dormant"
	StatusClosed  AccountStatus = "Closed"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "Deposit"
	TransactionWithdrawal TransactionType = "Withdrawal"
)

type Account struct {
	ID         int64
	Number     string
	CustomerID int64
	Type       AccountType
	Balance    float64
	SecretCode string
	Status     AccountStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OwnedAccount joins an account with the user id that owns it, so callers
// can enforce ownership without a second lookup.
type OwnedAccount struct {
	Account
	OwnerUserID int64
}

type Transaction struct {
	ID          int64
	AccountID   int64
	Type        TransactionType
	Amount      float64
	Description string
	Timestamp   time.Time
}

// NewAccountNumber returns a random 12-digit number. Collisions are caught by
// the unique constraint and retried by the service.
func NewAccountNumber() string {
	return fmt.Sprintf("%012d", 100000000000+rand.Int63n(900000000000))
}
