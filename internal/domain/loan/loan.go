package loan

import (
	"fmt"
	"math"
	"time"

	"corebank/internal/pkg/apperrors"
)

// DefaultAnnualRate applies when an application does not specify a rate.
const DefaultAnnualRate = 8.0

const minRejectionReasonLength = 10

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

type Loan struct {
	ID           int64
	Code         string
	CustomerID   int64
	Type         string
	Amount       float64
	TenureMonths int
	AnnualRate   float64
	EMI          float64
	Status       Status
	AppliedAt    time.Time
	ApprovedAt   *time.Time
	ApprovedBy   *int64

	Reason                 *string
	RejectionReason        *string
	Notes                  *string
	SupportingDocumentPath *string
}

// Detail pairs a loan with the identity of the applicant for back-office
// listings.
type Detail struct {
	Loan
	CustomerCode string
	CustomerName string
}

// CalculateEMI computes the equated monthly installment
// P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate, rounded to 2 decimals.
// A zero rate degenerates to straight principal division.
func CalculateEMI(principal, annualRate float64, tenureMonths int) (float64, error) {
	if principal <= 0 {
		return 0, fmt.Errorf("%w: principal must be positive", apperrors.ErrInvalidArgument)
	}
	if tenureMonths <= 0 {
		return 0, fmt.Errorf("%w: tenure must be positive", apperrors.ErrInvalidArgument)
	}
	if annualRate < 0 {
		return 0, fmt.Errorf("%w: annual rate cannot be negative", apperrors.ErrInvalidArgument)
	}

	monthlyRate := annualRate / 12 / 100
	if monthlyRate == 0 {
		return roundTo(principal/float64(tenureMonths), 2), nil
	}
	powerTerm := math.Pow(1+monthlyRate, float64(tenureMonths))
	emi := (principal * monthlyRate * powerTerm) / (powerTerm - 1)
	return roundTo(emi, 2), nil
}

func roundTo(n float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(n*pow) / pow
}
